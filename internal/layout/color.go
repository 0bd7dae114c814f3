package layout

import (
	"regexp"
	"strconv"
	"strings"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// NormalizeColor returns a lowercase #rrggbb color, or "" when value is not
// a hex color.
func NormalizeColor(value string) string {
	value = strings.TrimSpace(value)
	if !hexColor.MatchString(value) {
		return ""
	}
	value = strings.ToLower(value)
	if len(value) == 4 {
		return "#" + strings.Repeat(value[1:2], 2) + strings.Repeat(value[2:3], 2) + strings.Repeat(value[3:4], 2)
	}
	return value
}

// RGB splits a color into its components. Invalid colors are black.
func RGB(value string) (r, g, b int) {
	value = NormalizeColor(value)
	if value == "" {
		return 0, 0, 0
	}
	n, err := strconv.ParseUint(value[1:], 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(n >> 16 & 0xff), int(n >> 8 & 0xff), int(n & 0xff)
}

func (p Palette) resolve(accent string) Palette {
	pick := func(v string) string {
		if v == AccentToken {
			return accent
		}
		return v
	}
	return Palette{
		HeaderBackground: pick(p.HeaderBackground),
		HeaderText:       pick(p.HeaderText),
		HeaderMuted:      pick(p.HeaderMuted),
		Title:            pick(p.Title),
		Label:            pick(p.Label),
		Text:             pick(p.Text),
		Muted:            pick(p.Muted),
		TableHeadBG:      pick(p.TableHeadBG),
		TableHeadText:    pick(p.TableHeadText),
		RowRule:          pick(p.RowRule),
		StripeBG:         pick(p.StripeBG),
		PanelBG:          pick(p.PanelBG),
		TotalValue:       pick(p.TotalValue),
		TotalRule:        pick(p.TotalRule),
		Negative:         pick(p.Negative),
	}
}
