package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"steganochat/internal/compose"
	"steganochat/internal/config"
	"steganochat/internal/contacts"
	"steganochat/internal/metrics"
	"steganochat/internal/ratchet"
)

func receiveCmd() *cobra.Command {
	var (
		contactsPath string
		key          string
		images       []string
		out          string
		configPath   string
	)

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Recover a message from a set of cover images",
		Long:  "Extract each image's ciphertext, decrypt it against the contacts store, and reassemble the original payload.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if contactsPath == "" {
				contactsPath = cfg.Contacts
			}
			if contactsPath == "" {
				contactsPath = "./contacts.db"
			}
			if len(images) == 0 {
				return fmt.Errorf("'--images' must name at least one cover image")
			}

			passphrase, err := resolvePassphrase(key)
			if err != nil {
				return err
			}

			c, err := contacts.Open(contactsPath, passphrase)
			if err != nil {
				return fmt.Errorf("open contacts: %w", err)
			}
			engine := ratchet.New(c)

			covers, err := loadCoverImages(images)
			if err != nil {
				return err
			}

			plaintext, err := compose.Receive(engine, covers)
			if err != nil {
				metrics.Default().RecordReceiveError(receiveErrorReason(err))
				return fmt.Errorf("receive: %w", err)
			}
			metrics.Default().RecordReceive()

			if err := c.Save(); err != nil {
				return fmt.Errorf("save contacts: %w", err)
			}

			if out != "" {
				if err := os.WriteFile(out, plaintext, 0o600); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				printOK("recovered %d bytes into %s", len(plaintext), out)
				return nil
			}
			_, err = os.Stdout.Write(plaintext)
			return err
		},
	}

	cmd.Flags().StringVar(&contactsPath, "contacts", "", "Path to the contacts file (default ./contacts.db)")
	cmd.Flags().StringVar(&key, "key", "", "Contacts passphrase (prompted if omitted)")
	cmd.Flags().StringArrayVar(&images, "images", nil, "Cover images to extract from (repeatable)")
	cmd.Flags().StringVar(&out, "out", "", "Path to write the recovered payload (defaults to stdout)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to an optional YAML defaults file")

	return cmd
}

func receiveErrorReason(err error) string {
	switch {
	case errors.Is(err, compose.ErrNoImages):
		return "no_images"
	default:
		return "decrypt_failed"
	}
}
