package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alda-lang/alda-client/internal/aldaerr"
)

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("file", "f", "", "read Alda code from a file")
	cmd.Flags().StringP("code", "c", "", "supply Alda code as a string")
}

// findInput returns the Alda code a command operates on: --file, --code, or
// piped STDIN, in that order.
func (a *app) findInput(cmd *cobra.Command) (string, error) {
	flags := cmd.Flags()
	hasFile := flags.Changed("file")
	hasCode := flags.Changed("code")

	if hasFile && hasCode {
		return "", aldaerr.InvalidOptions("You must supply either a --file or --code argument (not both).")
	}
	if hasFile {
		path, _ := flags.GetString("file")
		return readFile(path)
	}
	if hasCode {
		code, _ := flags.GetString("code")
		return code, nil
	}
	if a.stdin != nil && a.stdinIsTerminal != nil && !a.stdinIsTerminal() {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", aldaerr.System("Unable to read STDIN.", err)
		}
		return string(data), nil
	}

	return "", aldaerr.InvalidOptions("Please provide some Alda code in the form of a string, file, or STDIN.")
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", aldaerr.System(fmt.Sprintf("Unable to read %s.", path), err)
	}
	return string(data), nil
}
