package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-webdl/mssclient/iobyte"
	"github.com/go-webdl/mssclient/session"
)

var (
	dumpMaxPackets int
	dumpSeek       time.Duration
)

var dumpCmd = &cobra.Command{
	Use:   "dump <manifest-url>",
	Short: "Open a manifest and print its packet stream",
	Long: `dump fetches a Smooth Streaming manifest, activates its first video and
audio tracks, and prints a summary followed by one line per demuxed packet.

SIGINT/SIGTERM cancel the session's context, which unblocks any in-flight
fragment fetch or live-reload sleep the same way a player's stop button
would.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().IntVar(&dumpMaxPackets, "max-packets", 0, "stop after this many packets (0 = until end of stream)")
	dumpCmd.Flags().DurationVar(&dumpSeek, "seek", 0, "seek output stream 0 (the video track, or the audio track when there is no video) to this offset before reading")
}

func runDump(_ *cobra.Command, args []string) error {
	manifestURL := args[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	s := session.New(iobyte.NewHTTPByteSource(), slog.Default())
	if err := s.Open(ctx, manifestURL); err != nil {
		return fmt.Errorf("open %s: %w", manifestURL, err)
	}
	defer s.Close()

	sum := s.Summary()
	fmt.Printf("live=%v duration=%s bitrate=%d video=%s audio=%s\n",
		sum.IsLive, time.Duration(sum.DurationMicros)*time.Microsecond, sum.BitRate, sum.VideoCodec, sum.AudioCodec)

	if dumpSeek > 0 {
		if err := s.Seek(ctx, 0, dumpSeek.Microseconds(), 0); err != nil {
			return fmt.Errorf("seek to %s: %w", dumpSeek, err)
		}
	}

	count := 0
	for dumpMaxPackets == 0 || count < dumpMaxPackets {
		pkt, err := s.ReadPacket(ctx)
		if err != nil {
			if errors.Is(err, session.ErrEndOfStream) {
				break
			}
			return fmt.Errorf("read packet: %w", err)
		}
		fmt.Printf("stream=%d dts=%d pts=%d key=%v size=%d\n",
			pkt.StreamIndex, pkt.DTS, pkt.PTS, pkt.KeyFrame, len(pkt.Data))
		count++
	}
	return nil
}
