package web

import "html/template"

var pageTemplate = template.Must(template.New("calendar").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · Smartspace</title>
</head>
<body>
<nav class="calendar-nav">
<a class="calendar-prev" href="{{.PrevURL}}">Prev</a>
{{- if .TodayURL}}
<a class="calendar-today-link" href="{{.TodayURL}}">Today</a>
{{- end}}
<a class="calendar-next" href="{{.NextURL}}">Next</a>
{{- range .Modes}}
<a class="calendar-mode{{if .Active}} active{{end}}" href="{{.URL}}">{{.Label}}</a>
{{- end}}
{{- if .ListURL}}
<a class="calendar-mode{{if .ListActive}} active{{end}}" href="{{.ListURL}}">List</a>
{{- end}}
</nav>
<h1>{{.Title}}</h1>
{{- if .Failed}}
<p class="calendar-error" role="alert">Failed to load bookings</p>
{{- else if .Empty}}
<p class="calendar-empty">No bookings</p>
{{- end}}
{{- if .ListActive}}
<table class="calendar-list">
<thead><tr><th>Purpose</th><th>Room</th><th>Organizer</th><th>Start</th><th>End</th><th>Status</th></tr></thead>
<tbody>
{{- range .List}}
<tr data-booking-id="{{.ID}}">
<td>{{.Purpose}}</td><td>{{.RoomName}}</td><td>{{.Organizer}}</td><td>{{.StartTime}}</td><td>{{.EndTime}}</td><td class="status-{{.StatusClass}}">{{.Status}}</td>
</tr>
{{- end}}
</tbody>
</table>
{{- else}}
{{.Grid}}
{{- end}}
</body>
</html>
`))

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sign in · Smartspace</title>
</head>
<body>
<h1>Sign in</h1>
{{- if .Error}}
<p class="login-error" role="alert">{{.Error}}</p>
{{- end}}
<form method="post" action="/login">
<label>Email <input type="email" name="email" value="{{.Email}}" required></label>
<label>Password <input type="password" name="password" required></label>
<button type="submit">Sign in</button>
</form>
</body>
</html>
`))

var bookingFormTemplate = template.Must(template.New("booking").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} · Smartspace</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .Error}}
<p class="booking-error" role="alert">{{.Error}}</p>
{{- end}}
{{- if .RoomsFailed}}
<p class="booking-error">Failed to load rooms</p>
{{- end}}
<form class="booking-form" method="post" action="{{.Action}}">
<label>Room <select name="room_id" required>
<option value="">Choose a room</option>
{{- range .Rooms}}
<option value="{{.ID}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>
{{- end}}
</select></label>
{{- with index .Fields "room_id"}}<span class="field-error">{{.}}</span>{{end}}
<label>Purpose <input type="text" name="purpose" value="{{.Purpose}}" maxlength="200" required></label>
{{- with index .Fields "purpose"}}<span class="field-error">{{.}}</span>{{end}}
<label>Start <input type="date" name="start_date" value="{{.StartDate}}" required> <input type="time" name="start_time" value="{{.StartTime}}" required></label>
{{- with index .Fields "start_time"}}<span class="field-error">{{.}}</span>{{end}}
<label>End <input type="date" name="end_date" value="{{.EndDate}}" required> <input type="time" name="end_time" value="{{.EndTime}}" required></label>
{{- with index .Fields "end_time"}}<span class="field-error">{{.}}</span>{{end}}
<label>Attendees <input type="text" name="attendees" value="{{.Attendees}}" placeholder="user ids, comma separated"></label>
{{- with index .Fields "attendees"}}<span class="field-error">{{.}}</span>{{end}}
<button type="submit">Save</button>
<a href="{{.BackURL}}">Back to calendar</a>
</form>
{{- if .Cancellable}}
<form class="booking-cancel" method="post" action="/bookings/{{.BookingID}}/cancel">
<button type="submit">Cancel booking</button>
</form>
{{- end}}
</body>
</html>
`))
