package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/proctor-go/cmd/output"
	"github.com/tphakala/proctor-go/cmd/setup"
	"github.com/tphakala/proctor-go/internal/analysis"
	"github.com/tphakala/proctor-go/internal/conf"
	"github.com/tphakala/proctor-go/internal/media"
)

// Command creates the audio command for analyzing recorded audio files.
func Command(settings *conf.Settings) *cobra.Command {
	var sampleRate int

	cmd := &cobra.Command{
		Use:   "audio [file...]",
		Short: "Analyze recorded audio",
		Long:  "Run the audio analyzer over WAV, FLAC or raw float32 PCM files in consecutive windows.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := setup.NewAudioAnalyzer(settings)
			if err != nil {
				return err
			}
			svc, err := analysis.NewService(nil, analyzer,
				analysis.WithBlobWindow(time.Duration(settings.Audio.BlobWindowSeconds*float64(time.Second))))
			if err != nil {
				return err
			}
			defer svc.Close()

			fmt.Fprintln(cmd.OutOrStdout(), render(cmd.Context(), svc, args, sampleRate))
			return nil
		},
	}

	cmd.Flags().IntVarP(&sampleRate, "rate", "r", settings.Audio.DefaultSampleRate, "Sample rate of raw PCM input")

	return cmd
}

type clipAnalyzer interface {
	AnalyzeAudioClip(ctx context.Context, clip media.Clip) (*analysis.BlobReport, error)
}

func render(ctx context.Context, svc clipAnalyzer, paths []string, sampleRate int) string {
	rows := make([][]string, 0, len(paths))
	for _, path := range paths {
		rows = append(rows, analyzeFile(ctx, svc, path, sampleRate))
	}
	return output.RenderTable(
		[]string{"File", "Format", "Duration", "Speakers", "Spikes at"},
		rows,
		[]output.Alignment{output.AlignLeft, output.AlignLeft, output.AlignRight, output.AlignRight, output.AlignLeft},
	)
}

func analyzeFile(ctx context.Context, svc clipAnalyzer, path string, sampleRate int) []string {
	name := filepath.Base(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return []string{name, "", "", "", output.Failure(err)}
	}

	clip, err := media.DecodeAudioBlob(raw, sampleRate)
	if err != nil {
		return []string{name, string(media.Sniff(raw)), "", "", output.Failure(err)}
	}

	report, err := svc.AnalyzeAudioClip(ctx, clip)
	if err != nil {
		return []string{name, string(clip.Container), "", "", output.Failure(err)}
	}

	var flags []string
	for _, p := range report.SuspiciousPatterns {
		flags = append(flags, strconv.FormatFloat(p.OffsetSeconds, 'f', 1, 64)+"s")
	}
	spikes := output.Flags(nil)
	if len(flags) > 0 {
		spikes = output.Flags([]string{strings.Join(flags, " ")})
	}

	return []string{
		name,
		string(clip.Container),
		fmt.Sprintf("%.2fs", report.Duration),
		strconv.Itoa(report.SpeakerCount),
		spikes,
	}
}
