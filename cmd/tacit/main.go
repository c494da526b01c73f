// Command tacit compiles and runs Tacit bytecode VM programs. Unlike the
// teacher's cmd/retro, which is an interactive REPL over a raw terminal,
// tacit is a thin, non-interactive runner: compile one source file, run
// it to completion, print the final data stack.
package main

func main() {
	execute()
}
