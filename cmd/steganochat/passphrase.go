package main

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// resolvePassphrase returns key if non-empty, otherwise prompts the user on
// a non-echoing terminal (the CLI never requires a passphrase to appear on
// the command line).
func resolvePassphrase(key string) (string, error) {
	return resolvePassphrasePrompt(key, "Passphrase: ")
}

func resolvePassphrasePrompt(key, prompt string) (string, error) {
	if key != "" {
		return key, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(bytes), nil
}
