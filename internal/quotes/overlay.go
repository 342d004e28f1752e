package quotes

import (
	"fmt"
	"strconv"
	"strings"

	"loopbuilder/internal/config"
)

// OverlayFilter builds the drawtext filter chain rendering every scheduled
// window with its fade envelope. Returns "" for an empty schedule.
func OverlayFilter(windows []Window, style config.QuoteStyle) string {
	if len(windows) == 0 {
		return ""
	}

	filters := make([]string, 0, len(windows))
	for _, w := range windows {
		filters = append(filters, buildDrawText(w, style))
	}
	return strings.Join(filters, ",")
}

func buildDrawText(w Window, style config.QuoteStyle) string {
	values := []string{
		fmt.Sprintf("text='%s'", escapeDrawText(w.Text)),
		"fontsize=h/20",
		"fontcolor=white",
		"borderw=2",
		"bordercolor=black",
		"x=(w-text_w)/2",
		"y=" + yExpr(style),
	}

	// Non-minimal styles get a semi-opaque backing panel behind the text.
	if style != config.StyleMinimal {
		values = append(values,
			"box=1",
			"boxcolor=black@0.7",
			"boxborderw=20",
		)
	}

	enable := fmt.Sprintf("between(t,%s,%s)", formatFloat(w.Start), formatFloat(w.End))
	values = append(values, fmt.Sprintf("enable='%s'", escapeFilterValue(enable)))
	alpha := alphaExpression(w.Start, w.End, config.QuoteFadeSeconds)
	values = append(values, fmt.Sprintf("alpha='%s'", escapeFilterValue(alpha)))

	return "drawtext=" + strings.Join(values, ":")
}

func yExpr(style config.QuoteStyle) string {
	switch style {
	case config.StyleTop:
		return "h*0.1"
	case config.StyleBottom:
		return "h*0.8"
	default:
		return "(h-text_h)/2"
	}
}

// alphaExpression ramps opacity linearly over fade seconds at both edges of
// the window and holds 1 in between.
func alphaExpression(start, end, fade float64) string {
	duration := end - start
	if duration <= 0 {
		return "0"
	}
	if fade > duration/2 {
		fade = duration / 2
	}

	startStr := formatFloat(start)
	endStr := formatFloat(end)
	fadeStr := formatFloat(fade)
	fadeOutStart := formatFloat(end - fade)

	return fmt.Sprintf(
		"if(lt(t,%s),(t-%s)/%s,if(gt(t,%s),(%s-t)/%s,1))",
		formatFloat(start+fade), startStr, fadeStr,
		fadeOutStart, endStr, fadeStr,
	)
}

func escapeDrawText(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")

	const newlinePlaceholder = "\u0000"
	value = strings.ReplaceAll(value, "\n", newlinePlaceholder)

	value = escapeFilterValueNoQuotes(value)
	value = strings.ReplaceAll(value, newlinePlaceholder, `\n`)
	value = strings.ReplaceAll(value, "'", "''")
	return value
}

func escapeFilterValue(value string) string {
	value = escapeFilterValueNoQuotes(value)
	value = strings.ReplaceAll(value, "'", `\'`)
	return value
}

func escapeFilterValueNoQuotes(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, ":", `\:`)
	value = strings.ReplaceAll(value, ",", `\,`)
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
