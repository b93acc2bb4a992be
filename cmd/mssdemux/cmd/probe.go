package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/go-webdl/mssclient/session"
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Score how likely a URL is a Smooth Streaming manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(_ *cobra.Command, args []string) error {
	url := args[0]

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	head := make([]byte, 64)
	n, _ := io.ReadFull(resp.Body, head)

	score := session.Probe(url, head[:n])
	fmt.Printf("score=%d/%d\n", score, session.ProbeMaxScore)
	return nil
}
