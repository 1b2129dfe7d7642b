package mail

import (
	htmltpl "html/template"
	texttpl "text/template"
)

var contactText = texttpl.Must(texttpl.New("contact.txt").Parse(`New message from the portfolio contact form.

Name:  {{.FirstName}} {{.LastName}}
Email: {{.Email}}
Phone: {{.PhoneNumber}}

{{.Description}}
`))

var contactHTML = htmltpl.Must(htmltpl.New("contact.html").Parse(`<p>New message from the portfolio contact form.</p>
<table>
<tr><td><b>Name</b></td><td>{{.FirstName}} {{.LastName}}</td></tr>
<tr><td><b>Email</b></td><td>{{.Email}}</td></tr>
<tr><td><b>Phone</b></td><td>{{.PhoneNumber}}</td></tr>
</table>
<p style="white-space:pre-wrap">{{.Description}}</p>
`))

var resetText = texttpl.Must(texttpl.New("reset.txt").Parse(`Hi {{.Name}},

Use the link below to choose a new password. It expires in one hour.

{{.Link}}

If you did not ask for this, ignore this mail.
`))

var resetHTML = htmltpl.Must(htmltpl.New("reset.html").Parse(`<p>Hi {{.Name}},</p>
<p>Use the link below to choose a new password. It expires in one hour.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not ask for this, ignore this mail.</p>
`))

var signupText = texttpl.Must(texttpl.New("signup.txt").Parse(`A new account was created on the portfolio.

Name:  {{.Name}}
Email: {{.Email}}
At:    {{.At}}
`))

var signupHTML = htmltpl.Must(htmltpl.New("signup.html").Parse(`<p>A new account was created on the portfolio.</p>
<table>
<tr><td><b>Name</b></td><td>{{.Name}}</td></tr>
<tr><td><b>Email</b></td><td>{{.Email}}</td></tr>
<tr><td><b>At</b></td><td>{{.At}}</td></tr>
</table>
`))
