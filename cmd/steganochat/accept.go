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

func acceptCmd() *cobra.Command {
	var (
		contactsPath   string
		key            string
		name           string
		invitePassword string
		in             string
		configPath     string
	)

	cmd := &cobra.Command{
		Use:   "accept <invite-blob>",
		Short: "Accept an invitation blob from a new contact",
		Long:  "Opens an invitation blob sealed by 'invite' and adds the sender as a contact.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in = args[0]
			}
			if in == "" {
				return fmt.Errorf("an invitation blob path is required")
			}
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
			invitePassphrase, err := resolvePassphrasePrompt(invitePassword, "Invitation passphrase: ")
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

			blob, err := os.ReadFile(in)
			if err != nil {
				return fmt.Errorf("read %s: %w", in, err)
			}

			user, err := engine.ReceiveInvitation(blob, name, invitePassphrase)
			if err != nil {
				return fmt.Errorf("accept invitation: %w", err)
			}
			metrics.Default().RecordInvitationAccepted()

			if err := c.Save(); err != nil {
				return fmt.Errorf("save contacts: %w", err)
			}

			printOK("accepted invitation from %q as user %d", name, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&contactsPath, "contacts", "", "Path to the contacts file (default ./contacts.db)")
	cmd.Flags().StringVar(&key, "key", "", "Contacts passphrase (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name for the inviting contact")
	cmd.Flags().StringVar(&invitePassword, "invite-password", "", "Passphrase protecting the invitation blob (prompted if omitted)")
	cmd.Flags().StringVar(&in, "in", "", "Path to the invitation blob (may also be given as a positional argument)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to an optional YAML defaults file")

	return cmd
}
