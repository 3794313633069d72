package view

import (
	"strings"

	"github.com/fatih/color"

	"github.com/cspresent/present/internal/common/apperrors"
	"github.com/cspresent/present/internal/schedule"
)

// Theme selects the palette used for terminal output.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"

	DefaultTheme = ThemeDark
)

var ErrInvalidTheme apperrors.Error = apperrors.New("invalid theme")

// ParseTheme accepts "dark" or "light" in any case. An empty string selects
// DefaultTheme.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultTheme, nil
	case ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	}
	return "", ErrInvalidTheme.Msg("unknown theme " + s + ", expected dark or light")
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

type palette struct {
	title     *color.Color
	muted     *color.Color
	upcoming  *color.Color
	active    *color.Color
	completed *color.Color
	control   *color.Color
	success   *color.Color
	failure   *color.Color
	info      *color.Color
}

func newPalette(t Theme, noColor bool) palette {
	var p palette
	if t == ThemeLight {
		p = palette{
			title:     color.New(color.FgBlack, color.Bold),
			muted:     color.New(color.FgBlack, color.Faint),
			upcoming:  color.New(color.FgBlue),
			active:    color.New(color.FgGreen, color.Bold),
			completed: color.New(color.FgBlack, color.Faint),
			control:   color.New(color.FgWhite, color.BgGreen),
			success:   color.New(color.FgGreen),
			failure:   color.New(color.FgRed),
			info:      color.New(color.FgBlue),
		}
	} else {
		p = palette{
			title:     color.New(color.FgHiWhite, color.Bold),
			muted:     color.New(color.FgHiBlack),
			upcoming:  color.New(color.FgHiCyan),
			active:    color.New(color.FgHiGreen, color.Bold),
			completed: color.New(color.FgHiBlack),
			control:   color.New(color.FgBlack, color.BgHiGreen),
			success:   color.New(color.FgHiGreen),
			failure:   color.New(color.FgHiRed),
			info:      color.New(color.FgHiCyan),
		}
	}
	if noColor {
		for _, c := range []*color.Color{p.title, p.muted, p.upcoming, p.active, p.completed, p.control, p.success, p.failure, p.info} {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) status(s schedule.Status) *color.Color {
	switch s {
	case schedule.StatusActive:
		return p.active
	case schedule.StatusUpcoming:
		return p.upcoming
	case schedule.StatusCompleted:
		return p.completed
	}
	return p.muted
}
