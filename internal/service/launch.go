package service

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// View modes the frontend understands.
const (
	ViewStudent = "student"
	ViewEditor  = "editor"
)

// Role vocabularies, lowercase. Short names are what Canvas and most LMSs
// send; URNs follow the LIS role vocabulary.
var (
	adminRoles = map[string]bool{
		"urn:lti:sysrole:ims/lis/sysadmin":       true,
		"urn:lti:sysrole:ims/lis/administrator":  true,
		"urn:lti:instrole:ims/lis/administrator": true,
	}
	instructorRoles = map[string]bool{
		"instructor":                             true,
		"urn:lti:role:ims/lis/instructor":        true,
		"urn:lti:role:ims/lis/contentdeveloper":  true,
		"urn:lti:role:ims/lis/teachingassistant": true,
		"urn:lti:role:ims/lis/mentor":            true,
		"urn:lti:instrole:ims/lis/instructor":    true,
	}
	studentRoles = map[string]bool{
		"learner":                                true,
		"student":                                true,
		"urn:lti:role:ims/lis/learner":           true,
		"urn:lti:role:ims/lis/student":           true,
		"urn:lti:role:ims/lis/mentee":            true,
		"urn:lti:role:ims/lis/member":            true,
		"urn:lti:role:ims/lis/prospectivemember": true,
		"urn:lti:instrole:ims/lis/student":       true,
	}
)

// ViewModeForRoles picks the frontend view for the comma-separated LTI roles
// and ext_roles of a launch. Administrators and instructors edit, students
// read. Roles outside every vocabulary get the editor view.
func ViewModeForRoles(roles, extRoles string) string {
	var admin, instructor, student bool
	for _, list := range []string{roles, extRoles} {
		for _, role := range strings.Split(list, ",") {
			role = strings.ToLower(strings.TrimSpace(role))
			if role == "" {
				continue
			}
			admin = admin || adminRoles[role]
			instructor = instructor || instructorRoles[role]
			student = student || studentRoles[role]
		}
	}
	if student && !admin && !instructor {
		return ViewStudent
	}
	return ViewEditor
}

// ltiLaunch redirects an LTI launch to the frontend with the view mode its
// roles call for. A launch without form fields gets the student view.
func (h *Handler) ltiLaunch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid launch form")
		return
	}

	mode := ViewStudent
	if len(r.PostForm) > 0 {
		mode = ViewModeForRoles(r.PostForm.Get("roles"), r.PostForm.Get("ext_roles"))
	}

	target := h.frontendFor(r, mode)
	h.logger.Info("lti launch", "view_mode", mode, "redirect", target)
	http.Redirect(w, r, target, http.StatusFound)
}

// directAccess sends a browser opening the service root to the editor view.
func (h *Handler) directAccess(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.frontendFor(r, ViewEditor), http.StatusFound)
}

// frontendFor builds the frontend URL carrying view_mode. Without a
// configured frontend the host comes from X-Forwarded-Host, or from the
// request host with the service port 5000 swapped for the dev server's 5173.
func (h *Handler) frontendFor(r *http.Request, mode string) string {
	u, err := url.Parse(h.frontendURL)
	if h.frontendURL == "" || err != nil {
		u = &url.URL{Scheme: "https", Host: requestFrontendHost(r), Path: "/"}
	}
	q := u.Query()
	q.Set("view_mode", mode)
	u.RawQuery = q.Encode()
	return u.String()
}

func requestFrontendHost(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, port, err := net.SplitHostPort(r.Host)
	if err != nil {
		return r.Host
	}
	if port == "5000" {
		port = "5173"
	}
	return net.JoinHostPort(host, port)
}
