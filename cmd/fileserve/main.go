package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iostrovok/fileserve"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fileserve",
		Short:         "fileserve serves a directory over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(checkCmd())

	filename := cmd.Flags().String("config", "", "config file to load")

	flagsConfig := fileserve.DefaultConfig()
	bindFlags(cmd.Flags(), &flagsConfig)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(*filename, cmd.Flags(), flagsConfig)
		if err != nil {
			return err
		}

		server, err := fileserve.New(cfg)
		if err != nil {
			return err
		}

		ln, err := net.Listen("tcp", cfg.Addr())
		if err != nil {
			return errors.Wrap(err, "listen")
		}

		banner(cmd.OutOrStdout(), cfg, server.Root())

		return server.Serve(cmd.Context(), ln)
	}

	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <config-file>",
		Short: "check configuration file",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := fileserve.LoadConfig(args[0])
		if err != nil {
			return err
		}

		if _, err := fileserve.New(cfg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("ok"), args[0])
		return nil
	}

	return cmd
}

func bindFlags(flags *pflag.FlagSet, cfg *fileserve.Config) {
	flags.StringVar(&cfg.Host, "host", cfg.Host, "address to listen on")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flags.StringVar(&cfg.Root, "root", cfg.Root, "directory to serve")
	flags.StringVar(&cfg.ServerName, "server-name", cfg.ServerName, "value of the Server response header")
	flags.Var(&cfg.LogLevel, "log-level", "log level: error, warn, info, debug or trace")

	flags.DurationVar(&cfg.IdleTimeout.Duration, "idle-timeout", cfg.IdleTimeout.Duration, "keep-alive idle timeout")
	flags.DurationVar(&cfg.ReadTimeout.Duration, "read-timeout", cfg.ReadTimeout.Duration, "request read timeout")
	flags.DurationVar(&cfg.WriteTimeout.Duration, "write-timeout", cfg.WriteTimeout.Duration, "response write timeout, 0 is unlimited")
}

// loadConfig reads the file, then lets every flag given on the command
// line win over it.
func loadConfig(file string, flags *pflag.FlagSet, flagsConfig fileserve.Config) (fileserve.Config, error) {
	cfg, err := fileserve.LoadConfig(file)
	if err != nil {
		return cfg, err
	}

	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = flagsConfig.Host
		case "port":
			cfg.Port = flagsConfig.Port
		case "root":
			cfg.Root = flagsConfig.Root
		case "server-name":
			cfg.ServerName = flagsConfig.ServerName
		case "log-level":
			cfg.LogLevel = flagsConfig.LogLevel
		case "idle-timeout":
			cfg.IdleTimeout = flagsConfig.IdleTimeout
		case "read-timeout":
			cfg.ReadTimeout = flagsConfig.ReadTimeout
		case "write-timeout":
			cfg.WriteTimeout = flagsConfig.WriteTimeout
		}
	})

	return cfg, cfg.Validate()
}

func banner(w io.Writer, cfg fileserve.Config, root string) {
	fmt.Fprintf(w, "Server running at %s\n", color.CyanString("http://%s/", cfg.Addr()))
	fmt.Fprintf(w, "Serving %s\n", color.GreenString("%s", root))
}
