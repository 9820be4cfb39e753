package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stwalsh4118/farmboard/internal/editor"
	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/measure"
)

// stdinName selects standard input for --file.
const stdinName = "-"

func newMeasureCmd() *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "measure [lat,lng ...]",
		Short: "Close a ring and print its perimeter and area",
		Long: `Normalizes the vertices the way a committed boundary is normalized
(6 decimals, consecutive duplicates collapsed, closed) and prints the
perimeter in km and the area in hectares. Fewer than three distinct
vertices measure zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			vertices, err := readVertices(cmd, file, args)
			if err != nil {
				return err
			}

			ring := geo.Normalize(vertices)
			if ring.DistinctCount() < geo.MinDistinctVertices {
				ring = geo.Ring{}
			}
			values := measure.Compute(ring)

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
					"ring":        ring,
					"values":      values,
					"measurement": values.Format(),
				})
			}
			m := values.Format()
			fmt.Fprintf(cmd.OutOrStdout(), "perimeter: %s\narea: %s\n", m.Perimeter, m.Area)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read a JSON array of {lat,lng} objects (- for stdin)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCloseCmd() *cobra.Command {
	var (
		file   string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "close [lat,lng ...]",
		Short: "Print the closed ring as a GeoJSON polygon",
		RunE: func(cmd *cobra.Command, args []string) error {
			vertices, err := readVertices(cmd, file, args)
			if err != nil {
				return err
			}

			ring := geo.Normalize(vertices)
			if strict {
				if err := ring.Validate(); err != nil {
					return fmt.Errorf("ring rejected: %w", err)
				}
			}
			return writeJSON(cmd.OutOrStdout(), geo.Boundary{Ring: ring})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read a JSON array of {lat,lng} objects (- for stdin)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail unless the ring can be submitted as a parcel boundary")
	return cmd
}

// replayStep is one line of replay output.
type replayStep struct {
	Publication *editor.Publication `json:"publication,omitempty"`
	Event       editor.EventType    `json:"event"`
	Mode        editor.Mode         `json:"mode"`
	Error       string              `json:"error,omitempty"`
	Rejected    string              `json:"rejected,omitempty"`
	Vertices    int                 `json:"vertices"`
}

func newReplayCmd() *cobra.Command {
	var window time.Duration
	cmd := &cobra.Command{
		Use:   "replay <events.json>",
		Short: "Feed a recorded gesture log through the draw controller",
		Long: `Reads a JSON array of editor events ({"type", "point", "index", "ring",
"at"}) and prints one JSON line per event with the resulting mode and any
publication. Rejected events are reported and leave the state unchanged.
Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var log []editor.Event
			if err := json.Unmarshal(data, &log); err != nil {
				return fmt.Errorf("failed to parse event log: %w", err)
			}

			reducer := editor.NewReducer(window)
			state := editor.NewState()
			enc := json.NewEncoder(cmd.OutOrStdout())
			published := 0

			for _, e := range log {
				next, pub, err := reducer.Reduce(state, e)
				step := replayStep{Event: e.Type}
				if err != nil {
					step.Rejected = err.Error()
				} else {
					state = next
				}
				if pub != nil {
					published++
					step.Publication = pub
				}
				step.Mode = state.Mode
				step.Error = state.Error
				step.Vertices = len(state.Vertices)
				if err := enc.Encode(step); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%d events, %d publications, final mode %s, %s / %s\n",
				len(log), published, state.Mode, state.Measurement.Perimeter, state.Measurement.Area)
			return nil
		},
	}
	cmd.Flags().DurationVar(&window, "window", editor.DefaultCommitWindow, "duplicate commit window")
	return cmd
}

// readVertices takes vertices from --file or from lat,lng arguments.
func readVertices(cmd *cobra.Command, file string, args []string) ([]geo.Coordinate, error) {
	if file != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("pass vertices as arguments or with --file, not both")
		}
		data, err := readInput(cmd, file)
		if err != nil {
			return nil, err
		}
		var vertices []geo.Coordinate
		if err := json.Unmarshal(data, &vertices); err != nil {
			return nil, fmt.Errorf("failed to parse vertices: %w", err)
		}
		return vertices, validateVertices(vertices)
	}

	vertices := make([]geo.Coordinate, 0, len(args))
	for _, arg := range args {
		c, err := parseLatLng(arg)
		if err != nil {
			return nil, err
		}
		vertices = append(vertices, c)
	}
	return vertices, validateVertices(vertices)
}

func validateVertices(vertices []geo.Coordinate) error {
	for i, v := range vertices {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("vertex %d: %w", i, err)
		}
	}
	return nil
}

// parseLatLng parses "lat,lng".
func parseLatLng(s string) (geo.Coordinate, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Coordinate{}, fmt.Errorf("vertex %q: expected lat,lng", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("vertex %q: bad latitude: %w", s, err)
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("vertex %q: bad longitude: %w", s, err)
	}
	return geo.LatLng(la, ln), nil
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == stdinName {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
