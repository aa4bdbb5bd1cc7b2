package calendar

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"
)

var gridTemplate = template.Must(template.New("grid").Funcs(template.FuncMap{
	"cellLink":  func(g *Grid, date time.Time, hour int) string { return g.opts.CellLink(date, hour) },
	"cardLink":  func(g *Grid, b Booking) string { return g.opts.CardLink(b) },
	"cardStyle": cardStyle,
	"rowStyle":  rowStyle,
	"bodyStyle": func(g *Grid) template.CSS { return template.CSS(fmt.Sprintf("position:relative;height:%.2fpx", g.Height())) },
	"hours":     hourRows,
	"isToday":   func(g *Grid, date time.Time) bool { return !g.opts.Today.IsZero() && SameDay(date, g.opts.Today) },
	"statusClass": func(g *Grid, b Booking) string {
		status := b.Status
		if !g.opts.Now.IsZero() {
			status = b.DerivedStatus(g.opts.Now)
		}
		return "status-" + strings.ToLower(string(status))
	},
	"monthHour": func(g *Grid) int { return g.opts.MonthCellHour },
	"clock": formatMinute,
	"date":  func(t time.Time) string { return t.Format(time.DateOnly) },
}).Parse(`<div class="calendar calendar-{{.Mode}}" data-start="{{date .Window.Start}}" data-end="{{date .Window.End}}">
{{- if eq .Mode "month"}}
<table class="calendar-month">
<thead><tr>{{range (index .Weeks 0)}}<th>{{.Date.Format "Mon"}}</th>{{end}}</tr></thead>
<tbody>
{{- range $row, $week := .Weeks}}
<tr class="calendar-week">
{{- range $col, $cell := $week}}
<td class="calendar-day{{if not $cell.InMonth}} calendar-outside{{end}}{{if isToday $ $cell.Date}} calendar-today{{end}}" data-row="{{$row}}" data-column="{{$col}}">
<a class="calendar-cell" data-date="{{date $cell.Date}}" href="{{cellLink $ $cell.Date (monthHour $)}}">{{$cell.Date.Day}}</a>
{{- range $cell.Cards}}
<a class="calendar-card {{statusClass $ .Booking}}{{if .Conflict}} calendar-conflict{{end}}" data-booking-id="{{.Booking.ID}}" href="{{cardLink $ .Booking}}">{{clock .StartMinute}} {{.Booking.Purpose}}</a>
{{- end}}
</td>
{{- end}}
</tr>
{{- end}}
</tbody>
</table>
{{- else}}
<div class="calendar-header">
{{- range .Columns}}
<div class="calendar-column-header{{if isToday $ .}} calendar-today{{end}}" data-date="{{date .}}">{{.Format "Mon 02 Jan"}}</div>
{{- end}}
</div>
<div class="calendar-body" style="{{bodyStyle .}}">
{{- range $hour := hours}}
<div class="calendar-row" data-hour="{{$hour}}" style="{{rowStyle $ $hour}}">
<span class="calendar-hour">{{printf "%02d:00" $hour}}</span>
{{- range $col, $day := $.Columns}}
<a class="calendar-cell" data-row="{{$hour}}" data-column="{{$col}}" data-date="{{date $day}}" data-hour="{{$hour}}" href="{{cellLink $ $day $hour}}"></a>
{{- end}}
</div>
{{- end}}
{{- range .Cards}}
<a class="calendar-card {{statusClass $ .Booking}}{{if .Conflict}} calendar-conflict{{end}}" data-booking-id="{{.Booking.ID}}" href="{{cardLink $ .Booking}}" style="{{cardStyle .}}">
<span class="calendar-card-title">{{.Booking.Purpose}}</span>
<span class="calendar-card-room">{{.Booking.RoomName}}</span>
<span class="calendar-card-time">{{clock .StartMinute}}-{{clock .EndMinute}}</span>
<span class="calendar-card-attendees">{{len .Booking.Attendees}}</span>
</a>
{{- end}}
</div>
{{- end}}
</div>
`))

// Render writes the grid as HTML. Cards are absolutely positioned inside
// the grid body; empty cells and cards are links carrying the data
// attributes a client script needs to call back into the page.
func (g *Grid) Render(w io.Writer) error {
	return gridTemplate.Execute(w, g)
}

// cardStyle only ever contains numbers produced by Layout.
func cardStyle(card LaidOutBooking) template.CSS {
	return template.CSS(fmt.Sprintf(
		"position:absolute;top:%.2fpx;height:%.2fpx;left:calc(%.4f%% + %.1fpx);width:calc(%.4f%% - %.1fpx)",
		card.Top, card.Height, card.Left, card.Inset, card.Width, 2*card.Inset,
	))
}

func rowStyle(g *Grid, hour int) template.CSS {
	return template.CSS(fmt.Sprintf("position:absolute;top:%.2fpx;height:%.2fpx;left:0;right:0",
		float64(hour)*g.opts.PixelsPerHour, g.opts.PixelsPerHour))
}

func hourRows() []int {
	hours := make([]int, HoursPerDay)
	for i := range hours {
		hours[i] = i
	}
	return hours
}

func formatMinute(minute float64) string {
	m := int(minute)
	if m >= MinutesPerDay {
		return "24:00"
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
