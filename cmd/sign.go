package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/inboxmailer/internal/config"
	"github.com/shaharia-lab/inboxmailer/internal/webhook"
)

// NewSignCmd returns the "sign" subcommand that signs a payload the same way
// the platform does, for local testing.
func NewSignCmd(cfg *config.AppConfig) *cobra.Command {
	var (
		id     string
		target string
		secret string
	)

	cmd := &cobra.Command{
		Use:   "sign <payload.json|->",
		Short: "Sign a webhook payload and print or send it",
		Long: `Sign a JSON payload with the webhook secret and print the signature
headers. With --url the signed payload is POSTed and the response printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = cfg.WebhookSecret
			}
			body, err := readPayload(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if id == "" {
				id = "msg_" + uuid.NewString()
			}
			headers, err := signPayload(secret, id, time.Now(), body)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if target == "" {
				printHeaders(out, headers)
				return nil
			}
			return postSigned(cmd.Context(), out, target, headers, body, cfg.UpstreamTimeout)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "webhook-id to sign (default: random)")
	cmd.Flags().StringVar(&target, "url", "", "POST the signed payload to this URL")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default: WEBHOOK_SECRET)")
	return cmd
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading payload from stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path) //nolint:gosec // path is a user argument
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return b, nil
}

func signPayload(secret, id string, at time.Time, body []byte) (http.Header, error) {
	if secret == "" {
		return nil, fmt.Errorf("no signing secret: set WEBHOOK_SECRET or pass --secret")
	}
	v, err := webhook.NewVerifier(secret)
	if err != nil {
		return nil, err
	}
	return v.Sign(id, at, body)
}

func printHeaders(w io.Writer, h http.Header) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, h.Get(k))
	}
}

func postSigned(ctx context.Context, w io.Writer, target string, headers http.Header, body []byte, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("sending payload: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	fmt.Fprintf(w, "%s\n%s\n", resp.Status, bytes.TrimSpace(respBody))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("receiver answered %s", resp.Status)
	}
	return nil
}
