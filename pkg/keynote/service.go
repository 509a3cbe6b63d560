package keynote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gadekar-pravin/eag2-mcp-mac/pkg/runlog"
)

// Document modes for open_keynote. reuse_or_create keeps an already open
// document; always_new starts a fresh one on every call.
const (
	ModeReuseOrCreate = "reuse_or_create"
	ModeAlwaysNew     = "always_new"
)

// Service owns the automation state shared by the tools: the slide geometry
// reported by the last open or size query and the id of the last drawn
// rectangle, which add_text_in_keynote targets.
type Service struct {
	runner ScriptRunner
	log    *runlog.ServerLogger

	mu          sync.Mutex
	rectangleID string
	slideWidth  int
	slideHeight int
}

// NewService creates a Service. A nil runner gets the osascript runner and a
// nil logger gets the stderr server logger.
func NewService(runner ScriptRunner, log *runlog.ServerLogger) *Service {
	if runner == nil {
		runner = &OSARunner{}
	}
	if log == nil {
		log = runlog.NewServerLogger()
	}
	return &Service{runner: runner, log: log}
}

// OpenKeynote activates Keynote, ensures a document per KEYNOTE_DOCUMENT_MODE
// and reports the slide dimensions. A theme failure downgrades to a warning
// so the run can continue on the default theme.
func (s *Service) OpenKeynote(ctx context.Context) string {
	start := time.Now()
	theme := os.Getenv("KEYNOTE_THEME")
	if theme == "" {
		theme = "White"
	}
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("KEYNOTE_DOCUMENT_MODE")))
	if mode != ModeReuseOrCreate && mode != ModeAlwaysNew {
		mode = ModeReuseOrCreate
	}

	var result string
	raw, err := s.runner.Run(ctx, "open_keynote", theme, mode)
	if err != nil {
		result = fmt.Sprintf("ERROR: %v", err)
	} else if width, height, perr := parseDimensions(raw); perr != nil {
		result = fmt.Sprintf("ERROR: %v", perr)
	} else {
		s.setSlideSize(width, height)
		if strings.Count(raw, "|") >= 2 {
			note := strings.SplitN(raw, "|", 3)[2]
			result = fmt.Sprintf("KEYNOTE_READY_WITH_WARNING: slide=1, slide_width=%d, slide_height=%d, note=%s", width, height, note)
		} else {
			result = fmt.Sprintf("KEYNOTE_READY: slide=1, slide_width=%d, slide_height=%d", width, height)
		}
	}
	s.logTool("open_keynote", map[string]any{"theme": theme, "mode": mode}, result, raw, start)
	return result
}

// SlideSize reports the current slide dimensions without touching documents.
func (s *Service) SlideSize(ctx context.Context) string {
	start := time.Now()
	var result string
	raw, err := s.runner.Run(ctx, "get_slide_size")
	if err != nil {
		result = fmt.Sprintf("ERROR: %v", err)
	} else if width, height, perr := parseDimensions(raw); perr != nil {
		result = fmt.Sprintf("ERROR: %v", perr)
	} else {
		s.setSlideSize(width, height)
		result = fmt.Sprintf("SLIDE_SIZE: width=%d, height=%d", width, height)
	}
	s.logTool("get_slide_size", nil, result, raw, start)
	return result
}

// DrawRectangle places a rectangle on slide 1 and remembers its id for the
// following add_text_in_keynote call.
func (s *Service) DrawRectangle(ctx context.Context, x, y, width, height int) string {
	start := time.Now()
	params := map[string]any{"x": x, "y": y, "width": width, "height": height}

	var result string
	raw, err := s.runner.Run(ctx, "draw_rectangle",
		strconv.Itoa(x), strconv.Itoa(y), strconv.Itoa(width), strconv.Itoa(height))
	if err != nil {
		result = fmt.Sprintf("ERROR: %v", err)
	} else {
		id := strings.TrimSpace(raw)
		s.setRectangleID(id)
		result = fmt.Sprintf("RECTANGLE_OK: id=%s, x=%d, y=%d, width=%d, height=%d", id, x, y, width, height)
	}
	s.logTool("draw_rectangle", params, result, raw, start)
	return result
}

// AddText writes text into the last drawn rectangle. The '¦' placeholder maps
// back to '|', which the line protocol reserves as its field separator.
func (s *Service) AddText(ctx context.Context, text string) string {
	start := time.Now()
	rectID := s.currentRectangleID()
	if rectID == "" {
		result := "ERROR: No rectangle context. Call draw_rectangle first."
		s.logTool("add_text_in_keynote", map[string]any{"text": text, "rectangle_id": rectID}, result, "", start)
		return result
	}

	safe := strings.ReplaceAll(text, "¦", "|")
	var result string
	raw, err := s.runner.Run(ctx, "add_text_in_keynote", rectID, safe)
	if err != nil {
		result = fmt.Sprintf("ERROR: %v", err)
	} else {
		count := utf8.RuneCountInString(safe)
		if f, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64); perr == nil {
			count = int(f)
		}
		result = fmt.Sprintf("TEXT_OK: id=%s, characters=%d", rectID, count)
	}
	s.logTool("add_text_in_keynote", map[string]any{"text": safe, "rectangle_id": rectID}, result, raw, start)
	return result
}

// Screenshot exports slide 1 as a PNG at path, expanding ~ and creating the
// parent directory when needed.
func (s *Service) Screenshot(ctx context.Context, path string) string {
	start := time.Now()
	expanded := expandPath(path)
	params := map[string]any{"path": expanded}

	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			result := fmt.Sprintf("ERROR: %v", err)
			s.logTool("screenshot_slide", params, result, "", start)
			return result
		}
	}

	var result string
	raw, err := s.runner.Run(ctx, "export_slide_png", expanded)
	if err != nil {
		result = fmt.Sprintf("ERROR: %v", err)
	} else {
		result = fmt.Sprintf("SCREENSHOT_SAVED: path=%s", raw)
	}
	s.logTool("screenshot_slide", params, result, raw, start)
	return result
}

func (s *Service) setSlideSize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slideWidth = width
	s.slideHeight = height
}

func (s *Service) setRectangleID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rectangleID = id
}

func (s *Service) currentRectangleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rectangleID
}

func (s *Service) logTool(name string, params map[string]any, result, raw string, start time.Time) {
	elapsed := time.Since(start).Seconds()
	if raw == "" {
		s.log.Infof("tool=%s params=%v result=%q elapsed=%.4f", name, params, result, elapsed)
		return
	}
	s.log.Infof("tool=%s params=%v result=%q raw=%q elapsed=%.4f", name, params, result, raw, elapsed)
}

// parseDimensions splits a width|height payload, tolerating fractional point
// values and a trailing warning note.
func parseDimensions(raw string) (int, int, error) {
	parts := make([]string, 0, 3)
	for _, part := range strings.Split(raw, "|") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("Unexpected slide size payload: %s", raw)
	}
	width, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("Unexpected slide size payload: %s", raw)
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("Unexpected slide size payload: %s", raw)
	}
	return int(width), int(height), nil
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
