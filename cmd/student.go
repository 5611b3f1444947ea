package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/rollcall/internal/database"
	"github.com/kozaktomas/rollcall/internal/roster"
	"github.com/spf13/cobra"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage the enrolled student roster",
}

var studentAddCmd = &cobra.Command{
	Use:   "add <student-id> <name> <photo>",
	Short: "Enroll a student from a photo",
	Long: `Enroll a student into the roster. The photo must contain exactly one
face; its embedding becomes the student's reference in the gallery.

Example:
  rollcall student add S123 "Jana Novakova" photos/jana.jpg`,
	Args: cobra.ExactArgs(3),
	RunE: runStudentAdd,
}

var studentRemoveCmd = &cobra.Command{
	Use:   "remove <student-id>",
	Short: "Remove a student from the roster",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentRemove,
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled students",
	RunE:  runStudentList,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentAddCmd)
	studentCmd.AddCommand(studentRemoveCmd)
	studentCmd.AddCommand(studentListCmd)

	studentListCmd.Flags().String("search", "", "Filter by name (case and diacritics insensitive)")
	studentListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runStudentAdd(cmd *cobra.Command, args []string) error {
	studentID, name, photoPath := args[0], args[1], args[2]

	photo, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("reading photo %s: %w", photoPath, err)
	}

	ctx := context.Background()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	rec, err := eng.service.Enroll(ctx, studentID, name, photo)
	if err != nil {
		switch {
		case errors.Is(err, roster.ErrNoFaceFound):
			return fmt.Errorf("no face found in %s", photoPath)
		case errors.Is(err, roster.ErrMultipleFaces):
			return fmt.Errorf("%s contains more than one face; use a portrait photo", photoPath)
		case errors.Is(err, roster.ErrDuplicateStudent):
			return fmt.Errorf("student %s is already enrolled", studentID)
		}
		return err
	}

	fmt.Printf("Enrolled %s (%s), embedding dim %d\n", rec.Name, rec.StudentID, rec.Dim)
	return nil
}

func runStudentRemove(cmd *cobra.Command, args []string) error {
	studentID := args[0]

	ctx := context.Background()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.service.Remove(ctx, studentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("student %s is not enrolled", studentID)
		}
		return err
	}

	fmt.Printf("Removed %s\n", studentID)
	return nil
}

func runStudentList(cmd *cobra.Command, args []string) error {
	search := mustGetString(cmd, "search")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	eng, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	students, err := eng.service.List(ctx, search)
	if err != nil {
		return fmt.Errorf("listing students: %w", err)
	}

	if jsonOutput {
		type row struct {
			StudentID string `json:"student_id"`
			Name      string `json:"name"`
			Model     string `json:"model"`
		}
		rows := make([]row, 0, len(students))
		for _, s := range students {
			rows = append(rows, row{StudentID: s.StudentID, Name: s.Name, Model: s.Model})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(students) == 0 {
		fmt.Println("No students enrolled")
		return nil
	}
	for _, s := range students {
		fmt.Printf("%-12s %s\n", s.StudentID, s.Name)
	}
	fmt.Printf("%d students\n", len(students))
	return nil
}
