package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ctagard/mcdbg/internal/debug"
	"github.com/ctagard/mcdbg/pkg/types"
)

// repl is the line-oriented front end. It owns the breakpoint map and
// re-pushes a path's full set whenever it mutates.
type repl struct {
	session     *debug.MinecraftSession
	breakpoints map[string][]types.Breakpoint
	frameID     int
	quit        chan struct{}
}

func newRepl(session *debug.MinecraftSession) *repl {
	r := &repl{
		session:     session,
		breakpoints: make(map[string][]types.Breakpoint),
		quit:        make(chan struct{}),
	}

	session.OnStopped(func(ev types.StoppedEvent) {
		fmt.Printf("\nstopped: %s (thread %d)\n> ", ev.Reason, ev.Thread)
		r.frameID = 0
	})
	session.OnContext(func(ev types.ContextEvent) {
		fmt.Printf("\ncontext %s (thread %d)\n> ", ev.Reason, ev.Thread)
	})
	session.OnLog(func(msg types.LogMessage) {
		fmt.Printf("\n[%s] %s\n> ", msg.Severity, msg.Message)
	})
	session.OnEnd(func() {
		fmt.Println("\ndebuggee disconnected")
		close(r.quit)
	})

	return r
}

func (r *repl) loop() {
	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	fmt.Print("> ")
	for {
		select {
		case <-r.quit:
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if r.handle(strings.Fields(line)) {
				return
			}
			fmt.Print("> ")
		}
	}
}

// handle runs one command; returns true to exit the loop.
func (r *repl) handle(fields []string) bool {
	if len(fields) == 0 {
		return false
	}

	var err error
	switch cmd := fields[0]; cmd {
	case "quit", "q", "exit":
		return true
	case "help", "h":
		r.printHelp()
	case "continue", "c":
		err = r.session.Continue()
	case "pause":
		err = r.session.Pause()
	case "next", "n":
		err = r.session.StepNext()
	case "in", "s":
		err = r.session.StepIn()
	case "out", "o":
		err = r.session.StepOut()
	case "resume":
		err = r.session.Resume()
	case "bt", "stack":
		err = r.printStack()
	case "frame", "f":
		if len(fields) != 2 {
			fmt.Println("usage: frame <id>")
			break
		}
		r.frameID, err = strconv.Atoi(fields[1])
	case "scopes":
		err = r.printScopes()
	case "vars", "v":
		err = r.printFrameVariables()
	case "eval", "e", "p":
		if len(fields) < 2 {
			fmt.Println("usage: eval <expression>")
			break
		}
		err = r.printEvaluate(strings.Join(fields[1:], " "), false)
	case "inspect", "i":
		if len(fields) < 2 {
			fmt.Println("usage: inspect <expression>")
			break
		}
		err = r.printEvaluate(strings.Join(fields[1:], " "), true)
	case "break", "b":
		err = r.setBreakpoints(fields[1:])
	case "clear":
		if len(fields) != 2 {
			fmt.Println("usage: clear <file>")
			break
		}
		delete(r.breakpoints, fields[1])
		_, err = r.session.SetBreakpoints(fields[1], nil)
	case "stoponexception":
		enabled := len(fields) == 2 && fields[1] == "on"
		err = r.session.SetStopOnException(enabled)
	case "cmd":
		if len(fields) < 2 {
			fmt.Println("usage: cmd <slash command>")
			break
		}
		err = r.session.RunCommand(strings.Join(fields[1:], " "), "overworld")
	default:
		fmt.Printf("unknown command %q; try help\n", cmd)
	}

	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
	return false
}

func (r *repl) printStack() error {
	frames, err := r.session.TraceStack()
	if err != nil {
		return err
	}
	for _, f := range frames {
		marker := "  "
		if f.ID == r.frameID {
			marker = "* "
		}
		fmt.Printf("%s#%d %s (%s:%d)\n", marker, f.ID, f.Name, f.FileName, f.Line)
	}
	return nil
}

func (r *repl) printScopes() error {
	scopes, err := r.session.Scopes(r.frameID)
	if err != nil {
		return err
	}
	for _, s := range scopes {
		fmt.Printf("%s (ref %d)\n", s.Name, s.Ref)
	}
	return nil
}

func (r *repl) printFrameVariables() error {
	byScope, err := r.session.FrameVariables(r.frameID)
	if err != nil {
		return err
	}
	for scope, vars := range byScope {
		fmt.Printf("%s:\n", scope)
		for _, v := range vars {
			fmt.Printf("  %s = %s\n", v.Name, renderVariable(v))
		}
	}
	return nil
}

func (r *repl) printEvaluate(expression string, expand bool) error {
	v, err := r.session.Evaluate(r.frameID, expression)
	if err != nil {
		return err
	}
	if !expand {
		fmt.Println(renderVariable(v))
		return nil
	}
	value := r.session.Inspect(v, debug.InspectOptions{})
	fmt.Println(renderValue(value, make(map[any]bool)))
	return nil
}

func (r *repl) setBreakpoints(args []string) error {
	if len(args) < 2 {
		fmt.Println("usage: break <file> <line> [line...]")
		return nil
	}
	path := args[0]
	bps := r.breakpoints[path]
	for _, arg := range args[1:] {
		line, err := strconv.Atoi(arg)
		if err != nil {
			fmt.Printf("line must be numeric: %q\n", arg)
			return nil
		}
		bps = append(bps, types.Breakpoint{Line: line})
	}
	r.breakpoints[path] = bps

	statuses, err := r.session.SetBreakpoints(path, bps)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		state := "verified"
		if !st.Verified {
			state = "unverified"
			if st.Message != "" {
				state += ": " + st.Message
			}
		}
		fmt.Printf("breakpoint %s:%d %s\n", path, st.Line, state)
	}
	return nil
}

func (r *repl) printHelp() {
	fmt.Print(`commands:
  continue|c            resume until the next halt
  pause                 halt at the next opportunity
  next|n  in|s  out|o   step over / into / out
  resume                resume without awaiting acknowledgement
  bt                    print the call stack
  frame <id>            select the frame for eval/vars
  scopes                list the selected frame's scopes
  vars|v                list the selected frame's variables
  eval|e <expr>         evaluate an expression
  inspect|i <expr>      evaluate and expand the full object graph
  break|b <file> <ln>…  add breakpoints for a file
  clear <file>          remove a file's breakpoints
  stoponexception on|off
  cmd <slash command>   run a slash command in the host
  quit|q
`)
}

func renderVariable(v *types.Variable) string {
	switch {
	case v.Kind == types.KindNull:
		return "null"
	case v.Kind == types.KindUndefined:
		return "undefined"
	case v.Kind == types.KindString:
		return fmt.Sprintf("%q", v.Value)
	case v.Primitive:
		return fmt.Sprint(v.Value)
	default:
		return v.ValueString
	}
}

// renderValue prints a materialised tree. Containers already seen render as
// a reference marker so cyclic graphs terminate.
func renderValue(value any, seen map[any]bool) string {
	switch val := value.(type) {
	case *types.Object:
		if seen[val] {
			return fmt.Sprintf("<ref %d>", val.Ref)
		}
		seen[val] = true
		parts := make([]string, 0, val.Len())
		val.Each(func(name string, field any) {
			parts = append(parts, fmt.Sprintf("%s: %s", name, renderValue(field, seen)))
		})
		return "{" + strings.Join(parts, ", ") + "}"
	case *types.Array:
		if seen[val] {
			return fmt.Sprintf("<ref %d>", val.Ref)
		}
		seen[val] = true
		parts := make([]string, 0, len(val.Elems))
		for _, elem := range val.Elems {
			parts = append(parts, renderValue(elem, seen))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return fmt.Sprintf("%q", val)
	case nil:
		return "null"
	default:
		return fmt.Sprint(val)
	}
}
