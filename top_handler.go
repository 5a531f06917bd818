package fileserve

import "sync"

// HandlerSet runs the "before" handlers, the main handler and the
// "after" handlers in order; the last handler always gets the error.
type HandlerSet struct {
	sync.RWMutex

	ID string // for test and debug

	before  []IHandler   // handlers before main handler
	after   []IHandler   // handlers after main handler
	last    ILastHandler // always last handler with error from handlers as parameter
	handler IHandler     // main handler
}

func Set(id string) *HandlerSet {
	return &HandlerSet{
		ID:     id,
		before: make([]IHandler, 0),
		after:  make([]IHandler, 0),
	}
}

func (set *HandlerSet) Run(ctx *Context) error {
	set.RLock()
	defer set.RUnlock()

	if err := runAll(ctx, set.before); err != nil || ctx.Stopped() {
		return err
	}

	if set.handler != nil {
		ctx.AddDebugHandleName(set.handler.Name())
		if err := set.handler.Run(ctx); err != nil {
			return err
		}

		if ctx.Stopped() {
			return nil
		}
	}

	return runAll(ctx, set.after)
}

func runAll(ctx *Context, handlers []IHandler) error {
	for _, h := range handlers {
		ctx.AddDebugHandleName(h.Name())
		if err := h.Run(ctx); err != nil {
			return err
		}

		if ctx.Stopped() {
			return nil
		}
	}

	return nil
}

func (set *HandlerSet) RunLast(ctx *Context, err error) error {
	set.RLock()
	defer set.RUnlock()

	if set.last == nil {
		return err
	}

	ctx.AddDebugHandleName(set.last.Name())
	return set.last.Run(ctx, err)
}

func (set *HandlerSet) Last(handler ILastHandler) *HandlerSet {
	set.Lock()
	defer set.Unlock()

	set.last = handler
	return set
}

func (set *HandlerSet) Before(handler ...IHandler) *HandlerSet {
	set.Lock()
	defer set.Unlock()

	set.before = append(set.before, handler...)
	return set
}

func (set *HandlerSet) After(handler ...IHandler) *HandlerSet {
	set.Lock()
	defer set.Unlock()

	set.after = append(set.after, handler...)
	return set
}

func (set *HandlerSet) Use(handler IHandler) *HandlerSet {
	set.Lock()
	defer set.Unlock()

	set.handler = handler
	return set
}
