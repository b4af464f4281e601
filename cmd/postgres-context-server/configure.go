package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pazars/postgres-context-server/internal/configure"
)

func newConfigureCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Run the interactive wizard that writes the env file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printBanner(os.Stderr, isTTY(os.Stderr.Fd()))
			var readPassword configure.PasswordReader
			if isTTY(os.Stdin.Fd()) {
				readPassword = promptPassword
			}
			return configure.Run(*envFile, readPassword)
		},
	}
}

func promptPassword() (string, error) {
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(password), nil
}
