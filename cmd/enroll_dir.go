package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <directory>",
	Short: "Bulk-enroll students from a directory of portrait photos",
	Long: `Enroll every photo in a directory. File names encode the student:

  <student-id>_<name>.jpg

so "S123_Jana Novakova.jpg" enrolls student S123 named "Jana Novakova".
Photos that fail (no face, multiple faces, already enrolled) are reported
and skipped; the rest of the directory is still processed.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	rootCmd.AddCommand(enrollDirCmd)

	enrollDirCmd.Flags().Bool("dry-run", false, "List what would be enrolled without writing")
}

// imageExtensions are the photo file types considered for enrollment.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// parseEnrollFilename splits "S123_Jana Novakova.jpg" into ID and name.
func parseEnrollFilename(path string) (studentID, name string, ok bool) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id, name, found := strings.Cut(base, "_")
	if !found || id == "" || name == "" {
		return "", "", false
	}
	return id, name, true
}

func collectEnrollPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var photos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			photos = append(photos, filepath.Join(dir, entry.Name()))
		}
	}
	return photos, nil
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	dir := args[0]
	dryRun := mustGetBool(cmd, "dry-run")

	photos, err := collectEnrollPhotos(dir)
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		return fmt.Errorf("no photos found in %s", dir)
	}

	if dryRun {
		for _, path := range photos {
			id, name, ok := parseEnrollFilename(path)
			if !ok {
				fmt.Printf("SKIP %s (name must be <student-id>_<name>.<ext>)\n", filepath.Base(path))
				continue
			}
			fmt.Printf("Would enroll %s as %s (%s)\n", filepath.Base(path), name, id)
		}
		return nil
	}

	ctx := context.Background()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Enrolling students"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var enrolled, skipped int
	var failures []string
	for _, path := range photos {
		bar.Add(1)

		id, name, ok := parseEnrollFilename(path)
		if !ok {
			skipped++
			failures = append(failures, fmt.Sprintf("%s: bad file name", filepath.Base(path)))
			continue
		}

		photo, err := os.ReadFile(path)
		if err != nil {
			skipped++
			failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			continue
		}

		if _, err := eng.service.Enroll(ctx, id, name, photo); err != nil {
			skipped++
			switch {
			case errors.Is(err, roster.ErrNoFaceFound):
				failures = append(failures, fmt.Sprintf("%s: no face found", filepath.Base(path)))
			case errors.Is(err, roster.ErrMultipleFaces):
				failures = append(failures, fmt.Sprintf("%s: multiple faces", filepath.Base(path)))
			case errors.Is(err, roster.ErrDuplicateStudent):
				failures = append(failures, fmt.Sprintf("%s: already enrolled", filepath.Base(path)))
			default:
				failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			}
			continue
		}
		enrolled++
	}

	fmt.Printf("\nEnrolled %d students, skipped %d\n", enrolled, skipped)
	for _, f := range failures {
		fmt.Printf("  %s\n", f)
	}
	return nil
}
