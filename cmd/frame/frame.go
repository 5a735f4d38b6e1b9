package frame

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tphakala/proctor-go/cmd/output"
	"github.com/tphakala/proctor-go/cmd/setup"
	"github.com/tphakala/proctor-go/internal/conf"
	"github.com/tphakala/proctor-go/internal/vision"
)

// Command creates the frame command for analyzing still images.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame [image...]",
		Short: "Analyze webcam frames",
		Long:  "Run the face analyzer over one or more JPEG, PNG, GIF, BMP or WebP images.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			face, err := setup.NewFaceStack(settings)
			if err != nil {
				return err
			}
			defer face.Close() //nolint:errcheck // process exits next

			fmt.Fprintln(cmd.OutOrStdout(), render(face.Analyzer, args))
			return nil
		},
	}

	return cmd
}

type frameAnalyzer interface {
	AnalyzeFrame(raw []byte) (vision.FaceSignalResult, error)
}

func render(analyzer frameAnalyzer, paths []string) string {
	rows := make([][]string, 0, len(paths))
	for _, path := range paths {
		rows = append(rows, analyzeFile(analyzer, path))
	}
	return output.RenderTable(
		[]string{"File", "Faces", "Position", "Looking away", "Flags"},
		rows,
		[]output.Alignment{output.AlignLeft, output.AlignRight, output.AlignRight, output.AlignLeft, output.AlignLeft},
	)
}

func analyzeFile(analyzer frameAnalyzer, path string) []string {
	name := filepath.Base(path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return []string{name, "", "", "", output.Failure(err)}
	}

	result, err := analyzer.AnalyzeFrame(raw)
	if err != nil {
		return []string{name, "", "", "", output.Failure(err)}
	}

	position := "-"
	if result.FacePosition != nil {
		position = fmt.Sprintf("%d,%d", result.FacePosition.X, result.FacePosition.Y)
	}
	return []string{
		name,
		strconv.Itoa(result.FacesDetected),
		position,
		strconv.FormatBool(result.LookingAway),
		output.Flags(result.Flags()),
	}
}
