package video

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/proctor-go/cmd/output"
	"github.com/tphakala/proctor-go/cmd/setup"
	"github.com/tphakala/proctor-go/internal/analysis"
	"github.com/tphakala/proctor-go/internal/conf"
	"github.com/tphakala/proctor-go/internal/vision"
)

// Command creates the video command for analyzing a recorded exam session.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video [file]",
		Short: "Analyze a recorded video",
		Long:  "Sample every Nth frame of a video and list the frames that raised proctoring flags.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			face, err := setup.NewFaceStack(settings)
			if err != nil {
				return err
			}
			defer face.Close() //nolint:errcheck // process exits next

			audioAnalyzer, err := setup.NewAudioAnalyzer(settings)
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("Sampling frames"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			source := &progressSource{source: setup.NewVideoSampler(settings), bar: bar}

			svc, err := analysis.NewService(face.Analyzer, audioAnalyzer,
				analysis.WithFrameSource(source),
				analysis.WithVideoWorkers(settings.Vision.PoolSize()))
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.AnalyzeVideo(cmd.Context(), args[0])
			_ = bar.Finish()
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().IntVar(&settings.Video.SampleInterval, "interval", settings.Video.SampleInterval, "Analyze every Nth frame")
	cmd.Flags().IntVar(&settings.Video.MaxFrames, "max-frames", settings.Video.MaxFrames, "Stop after this many sampled frames, 0 for no limit")

	// The root pre-run re-reads settings from viper, so flags must be bound there
	cobra.CheckErr(viper.BindPFlag("video.sampleinterval", cmd.Flags().Lookup("interval")))
	cobra.CheckErr(viper.BindPFlag("video.maxframes", cmd.Flags().Lookup("max-frames")))

	return cmd
}

// progressSource advances bar for every sampled frame
type progressSource struct {
	source vision.FrameSource
	bar    *progressbar.ProgressBar
}

func (p *progressSource) Sample(ctx context.Context, path string, fn func(vision.VideoFrame) error) (vision.VideoInfo, error) {
	return p.source.Sample(ctx, path, func(frame vision.VideoFrame) error {
		_ = p.bar.Add(1)
		return fn(frame)
	})
}

func printReport(w io.Writer, report *analysis.VideoReport) {
	fmt.Fprintf(w, "Duration %.2fs, %d frames analyzed, %d violations\n",
		report.Duration, report.FramesAnalyzed, len(report.Violations))
	if len(report.Violations) == 0 {
		return
	}

	rows := make([][]string, 0, len(report.Violations))
	for _, v := range report.Violations {
		rows = append(rows, []string{
			strconv.Itoa(v.Frame),
			strconv.FormatFloat(v.OffsetSeconds, 'f', 2, 64) + "s",
			output.Flags([]string{v.Type}),
		})
	}
	fmt.Fprintln(w, output.RenderTable(
		[]string{"Frame", "Offset", "Violation"},
		rows,
		[]output.Alignment{output.AlignRight, output.AlignRight, output.AlignLeft},
	))
}
