package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/tekuonline/uptivalab/internal/models"
)

// Synthetic journey actions
const (
	ActionNavigate    = "navigate"
	ActionClick       = "click"
	ActionType        = "type"
	ActionWaitVisible = "waitVisible"
	ActionAssertText  = "assertText"
)

const defaultScreenshotQuality = 80

// BrowserLocator resolves the provisioned headless browser binary
type BrowserLocator interface {
	ExecutablePath() string
}

// SyntheticProbe drives a headless browser through a scripted journey
type SyntheticProbe struct {
	browser BrowserLocator
}

// NewSyntheticProbe creates a synthetic probe using the browser found by locator
func NewSyntheticProbe(locator BrowserLocator) *SyntheticProbe {
	return &SyntheticProbe{browser: locator}
}

func (s *SyntheticProbe) Kind() models.Kind {
	return models.KindSynthetic
}

func (s *SyntheticProbe) Check(ctx context.Context, req *CheckRequest) (*models.CheckResult, error) {
	cfg, ok := req.Config.(*SyntheticConfig)
	if !ok {
		return nil, fmt.Errorf("synthetic probe: unexpected config %T", req.Config)
	}
	if len(cfg.Steps) == 0 {
		return nil, errors.New("synthetic probe: journey has no steps")
	}

	execPath := ""
	if s.browser != nil {
		execPath = s.browser.ExecutablePath()
	}
	if execPath == "" {
		return nil, errors.New("synthetic probe: browser runtime is not provisioned")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.NoSandbox,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, timeoutOr(req, 60*time.Second))
	defer cancel()

	quality := cfg.ScreenshotQuality
	if quality <= 0 {
		quality = defaultScreenshotQuality
	}

	result := newResult(req)
	start := time.Now()
	result.JourneySteps = runJourney(cfg.Steps,
		func(step SyntheticStep) error {
			return chromedp.Run(runCtx, stepAction(step))
		},
		func() []byte {
			var buf []byte
			// Best effort; the browser may already be gone
			if err := chromedp.Run(browserCtx, chromedp.FullScreenshot(&buf, quality)); err != nil {
				return nil
			}
			return buf
		},
	)
	setLatency(result, time.Since(start))

	summarizeJourney(result)
	return result, nil
}

// stepAction maps a journey step onto a chromedp action
func stepAction(step SyntheticStep) chromedp.Action {
	switch step.Action {
	case ActionNavigate:
		return chromedp.Navigate(step.URL)
	case ActionClick:
		return chromedp.Click(step.Selector, chromedp.ByQuery)
	case ActionType:
		return chromedp.SendKeys(step.Selector, step.Value, chromedp.ByQuery)
	case ActionWaitVisible:
		return chromedp.WaitVisible(step.Selector, chromedp.ByQuery)
	case ActionAssertText:
		return chromedp.ActionFunc(func(ctx context.Context) error {
			var text string
			if err := chromedp.Text(step.Selector, &text, chromedp.ByQuery).Do(ctx); err != nil {
				return err
			}
			if !strings.Contains(text, step.Value) {
				return fmt.Errorf("text %q not found in %q", step.Value, step.Selector)
			}
			return nil
		})
	default:
		return chromedp.ActionFunc(func(context.Context) error {
			return fmt.Errorf("unknown action %q", step.Action)
		})
	}
}

// runJourney executes steps in order. The first failing step gets a
// screenshot from capture and every later step is marked skipped.
func runJourney(steps []SyntheticStep, exec func(SyntheticStep) error, capture func() []byte) []models.JourneyStep {
	out := make([]models.JourneyStep, 0, len(steps))
	failed := false

	for i, step := range steps {
		js := models.JourneyStep{
			Index:  i,
			Label:  stepLabel(i, step),
			Action: step.Action,
		}

		if failed {
			js.Status = models.StepSkipped
			out = append(out, js)
			continue
		}

		start := time.Now()
		err := exec(step)
		js.DurationMs = time.Since(start).Milliseconds()

		if err != nil {
			failed = true
			js.Status = models.StepFailed
			js.Error = err.Error()
			if capture != nil {
				js.Screenshot = capture()
			}
		} else {
			js.Status = models.StepPassed
		}
		out = append(out, js)
	}
	return out
}

func stepLabel(i int, step SyntheticStep) string {
	if step.Label != "" {
		return step.Label
	}
	target := step.Selector
	if step.Action == ActionNavigate {
		target = step.URL
	}
	return fmt.Sprintf("%d. %s %s", i+1, step.Action, target)
}

// summarizeJourney sets status and message from the journey steps
func summarizeJourney(result *models.CheckResult) {
	for _, step := range result.JourneySteps {
		if step.Status == models.StepFailed {
			result.Status = models.StatusDown
			result.Message = fmt.Sprintf("Step %q failed: %s", step.Label, step.Error)
			return
		}
	}
	result.Status = models.StatusUp
	result.Message = fmt.Sprintf("Journey completed - %d steps", len(result.JourneySteps))
}
