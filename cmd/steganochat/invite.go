package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"steganochat/internal/config"
	"steganochat/internal/contacts"
	"steganochat/internal/metrics"
	"steganochat/internal/ratchet"
)

func inviteCmd() *cobra.Command {
	var (
		contactsPath   string
		key            string
		name           string
		invitePassword string
		out            string
		configPath     string
	)

	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Create a new contact and an invitation blob to send them",
		Long:  "Allocates a fresh keyset for a new contact and seals it into a passphrase-protected blob the peer imports with 'accept'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("'--name' is required")
			}

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

			passphrase, err := resolvePassphrase(key)
			if err != nil {
				return err
			}
			invitePassphrase, err := resolveInvitePassphrase(invitePassword)
			if err != nil {
				return err
			}

			var c *contacts.Contacts
			if _, statErr := os.Stat(contactsPath); statErr != nil {
				c, err = contacts.Create(contactsPath, passphrase)
			} else {
				c, err = contacts.Open(contactsPath, passphrase)
			}
			if err != nil {
				return fmt.Errorf("open contacts: %w", err)
			}
			engine := ratchet.New(c)

			blob, user, err := engine.Invite(name, invitePassphrase)
			if err != nil {
				return fmt.Errorf("invite: %w", err)
			}
			metrics.Default().RecordInvite()

			if err := c.Save(); err != nil {
				return fmt.Errorf("save contacts: %w", err)
			}

			if out == "" {
				out = name + ".invite"
			}
			if err := os.WriteFile(out, blob, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			printOK("invited %q as user %d, blob written to %s", name, user.ID, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&contactsPath, "contacts", "", "Path to the contacts file (default ./contacts.db)")
	cmd.Flags().StringVar(&key, "key", "", "Contacts passphrase (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name for the new contact")
	cmd.Flags().StringVar(&invitePassword, "invite-password", "", "Passphrase protecting the invitation blob (prompted if omitted)")
	cmd.Flags().StringVar(&out, "out", "", "Path to write the invitation blob (defaults to <name>.invite)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to an optional YAML defaults file")

	return cmd
}

func resolveInvitePassphrase(invitePassword string) (string, error) {
	return resolvePassphrasePrompt(invitePassword, "Invitation passphrase: ")
}
