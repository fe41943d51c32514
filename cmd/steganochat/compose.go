package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"steganochat/internal/compose"
	"steganochat/internal/config"
	"steganochat/internal/contacts"
	"steganochat/internal/metrics"
	"steganochat/internal/ratchet"
	"steganochat/internal/stego"
)

func composeCmd() *cobra.Command {
	var (
		contactsPath string
		key          string
		images       []string
		file         string
		userID       string
		userName     string
		outputDir    string
		imageFormat  string
		configPath   string
		metricsFile  string
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose a message",
		Long:  "Split a message across a set of cover images, encrypt each piece for a recipient, and embed the result.",
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
			if outputDir == "" {
				outputDir = cfg.OutputDir
			}
			if imageFormat == "" {
				imageFormat = cfg.ImageFormat
			}
			if !strings.EqualFold(imageFormat, "PNG") {
				return fmt.Errorf("unsupported image format %q: only PNG is implemented", imageFormat)
			}
			if len(images) == 0 {
				return fmt.Errorf("'--images' must name at least one cover image")
			}

			passphrase, err := resolvePassphrase(key)
			if err != nil {
				return err
			}

			content, err := readPayload(file)
			if err != nil {
				return err
			}
			if len(content) == 0 {
				return fmt.Errorf("no input file provided")
			}

			c, err := contacts.Open(contactsPath, passphrase)
			if err != nil {
				return fmt.Errorf("open contacts: %w", err)
			}
			engine := ratchet.New(c)

			resolvedID, err := resolveUser(c, userID, userName)
			if err != nil {
				return err
			}

			covers, err := loadCoverImages(images)
			if err != nil {
				return err
			}

			start := time.Now()
			if err := compose.Send(engine, covers, content, resolvedID); err != nil {
				metrics.Default().RecordSendError(sendErrorReason(err))
				return fmt.Errorf("compose: %w", err)
			}
			metrics.Default().RecordSend()
			elapsed := time.Since(start)

			if err := c.Save(); err != nil {
				return fmt.Errorf("save contacts: %w", err)
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			totalBytes := 0
			for i, img := range covers {
				target := filepath.Join(outputDir, filepath.Base(images[i]))
				f, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create %s: %w", target, err)
				}
				if err := img.EncodePNG(f); err != nil {
					f.Close()
					return fmt.Errorf("encode %s: %w", target, err)
				}
				f.Close()
				if info, err := os.Stat(target); err == nil {
					totalBytes += int(info.Size())
				}
			}

			printOK("embedded %s into %d image(s) for user %d in %s",
				humanize.Bytes(uint64(len(content))), len(covers), resolvedID, elapsed.Round(time.Millisecond))

			if metricsFile != "" {
				if err := writeMetricsSnapshot(metricsFile, len(covers), totalBytes, elapsed); err != nil {
					return fmt.Errorf("write metrics file: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&contactsPath, "contacts", "", "Path to the contacts file (default ./contacts.db)")
	cmd.Flags().StringVar(&key, "key", "", "Contacts passphrase (prompted if omitted)")
	cmd.Flags().StringArrayVar(&images, "images", nil, "Cover images to embed in (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "Path to the payload to embed (defaults to stdin)")
	cmd.Flags().StringVar(&userID, "user-id", "", "Recipient's stable ID (decimal or 0x-prefixed hex)")
	cmd.Flags().StringVar(&userName, "user-name", "", "Recipient's display name, alternative to --user-id")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory to save the embedded images (default .)")
	cmd.Flags().StringVar(&imageFormat, "image-format", "", "Output image format (only PNG is supported)")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to an optional YAML defaults file")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Optional path to write a Prometheus textfile-collector snapshot")

	return cmd
}

func readPayload(path string) ([]byte, error) {
	if path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(os.Stdin)
}

func resolveUser(c *contacts.Contacts, userID, userName string) (uint64, error) {
	if userID != "" {
		id, err := strconv.ParseUint(strings.TrimPrefix(userID, "0x"), hexOrDecimalBase(userID), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid --user-id %q: %w", userID, err)
		}
		return id, nil
	}
	if userName == "" {
		return 0, fmt.Errorf("'--user-id' or '--user-name' must be specified")
	}
	user := c.FindByName(userName)
	if user == nil {
		return 0, fmt.Errorf("no contact named %q", userName)
	}
	return user.ID, nil
}

func hexOrDecimalBase(userID string) int {
	if strings.HasPrefix(userID, "0x") || strings.HasPrefix(userID, "0X") {
		return 16
	}
	return 10
}

func loadCoverImages(paths []string) ([]*stego.CoverImage, error) {
	out := make([]*stego.CoverImage, 0, len(paths))
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open cover image %s: %w", path, err)
		}
		img, err := stego.DecodePNG(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("decode cover image %s: %w", path, err)
		}
		out = append(out, img)
	}
	return out, nil
}

func sendErrorReason(err error) string {
	switch {
	case errors.Is(err, compose.ErrNoImages):
		return "no_images"
	case errors.Is(err, contacts.ErrUserNotFound):
		return "unknown_user"
	default:
		return "encrypt_failed"
	}
}

// writeMetricsSnapshot gathers the default registry and writes a
// node_exporter-style textfile collector snapshot summarizing one compose
// run: images embedded, bytes written, elapsed seconds.
func writeMetricsSnapshot(path string, imageCount, bytesWritten int, elapsed time.Duration) error {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# HELP steganochat_compose_images_total Cover images embedded in the last compose run\n")
	fmt.Fprintf(&sb, "# TYPE steganochat_compose_images_total gauge\n")
	fmt.Fprintf(&sb, "steganochat_compose_images_total %d\n", imageCount)
	fmt.Fprintf(&sb, "# HELP steganochat_compose_bytes_written Bytes written across all output images in the last compose run\n")
	fmt.Fprintf(&sb, "# TYPE steganochat_compose_bytes_written gauge\n")
	fmt.Fprintf(&sb, "steganochat_compose_bytes_written %d\n", bytesWritten)
	fmt.Fprintf(&sb, "# HELP steganochat_compose_duration_seconds Wall-clock duration of the last compose run\n")
	fmt.Fprintf(&sb, "# TYPE steganochat_compose_duration_seconds gauge\n")
	fmt.Fprintf(&sb, "steganochat_compose_duration_seconds %f\n", elapsed.Seconds())

	for _, mf := range mfs {
		appendMetricFamily(&sb, mf)
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func appendMetricFamily(sb *strings.Builder, mf *dto.MetricFamily) {
	if mf.GetName() == "" || !strings.HasPrefix(mf.GetName(), "steganochat_") {
		return
	}
	fmt.Fprintf(sb, "# HELP %s %s\n", mf.GetName(), mf.GetHelp())
	fmt.Fprintf(sb, "# TYPE %s %s\n", mf.GetName(), strings.ToLower(mf.GetType().String()))
	for _, m := range mf.GetMetric() {
		value := 0.0
		switch {
		case m.Counter != nil:
			value = m.Counter.GetValue()
		case m.Gauge != nil:
			value = m.Gauge.GetValue()
		}
		fmt.Fprintf(sb, "%s %f\n", mf.GetName(), value)
	}
}
