// Package serialshell implements the line-command protocol used by
// serial-cli to drive a byte-oriented serial port from an interactive shell
// or a script.
//
// # Command Grammar
//
// Each input line is classified into exactly one command. Comments start at
// the first unescaped '#' and run to the end of the line.
//
//	exit                  End the session
//	clear                 Clear the screen
//	!<shell command>      Run a local shell command and show its output
//	read <N>              Read N bytes from the port
//	read <WORD>           Read from the port until WORD is received
//	send <payload>        Write payload followed by a newline
//	write <payload>       Same as send
//
// A send or write payload containing the standalone token --wait blocks for
// a response terminated by a blank line ("\n\n") after writing.
//
// # Subcommand Markers
//
// Payloads may embed !(command) markers. Each marker is replaced, left to
// right, by the standard output of the command:
//
//	send SET TIME !(date +%s)
//
// Substituted output is never scanned for further markers.
//
// # Basic Usage
//
//	transport, err := serialshell.OpenPort(serialshell.PortConfig{
//	    Name:     "/dev/ttyUSB0",
//	    BaudRate: serialshell.DefaultBaudRate,
//	    Timeout:  serialshell.DefaultTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer transport.Close()
//
//	interp := serialshell.NewInterpreter(transport, serialshell.NewShellRunner(""))
//	outcome, err := interp.Execute(ctx, "send AT --wait")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(outcome.Text)
//
// # Thread Safety
//
// An Interpreter owns its transport for the lifetime of a session and is not
// safe for concurrent use. Commands are executed one at a time, in order.
package serialshell
