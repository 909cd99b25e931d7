package phone

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// PromptToken asks for a session token on a terminal without echoing it.
// When in is not a terminal the first line is read as is. A blank answer
// returns "".
func PromptToken(in *os.File, out io.Writer) (string, error) {
	fmt.Fprint(out, "Access token (blank to start signed out): ")

	if isTerminal(int(in.Fd())) {
		b, err := readPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
