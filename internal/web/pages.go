package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/mehmetcc/medgate/internal/authz"
	"github.com/mehmetcc/medgate/internal/person"
	"github.com/mehmetcc/medgate/pkg/client"
	"go.uber.org/zap"
)

type viewData struct {
	Title     string
	Principal *person.Principal
	Error     string
	Links     []link
	Columns   []string
	Rows      [][]string
}

type link struct {
	Href  string
	Label string
	op    authz.Operation
}

var dashboardLinks = []link{
	{Href: "/patients", Label: "Patients", op: authz.OpListPatients},
	{Href: "/equipment", Label: "Equipment", op: authz.OpListEquipment},
	{Href: "/staff", Label: "Staff", op: authz.OpListStaff},
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if _, c := s.browser(r); c != nil && c.LoggedIn() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login", viewData{Title: "Sign in"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		s.render(w, http.StatusUnprocessableEntity, "login", viewData{Title: "Sign in", Error: "Username and password are required."})
		return
	}

	// a fresh browser session per login; nothing from a previous one survives
	oldID, _ := s.browser(r)
	s.forget(w, oldID)

	c := s.newClient()
	if _, err := c.Login(r.Context(), username, password); err != nil {
		if errors.Is(err, client.ErrInvalidLogin) {
			s.render(w, http.StatusUnauthorized, "login", viewData{Title: "Sign in", Error: "Invalid username or password."})
			return
		}
		s.logger.Error("login call failed", zap.Error(err))
		s.render(w, http.StatusBadGateway, "login", viewData{Title: "Sign in", Error: "The hospital service is unavailable."})
		return
	}
	s.remember(w, c)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	id, c := s.browser(r)
	if c != nil {
		c.Logout()
	}
	s.forget(w, id)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) accessDenied(w http.ResponseWriter, r *http.Request) {
	data := viewData{Title: "Access denied"}
	if _, c := s.browser(r); c != nil {
		if sess, ok := c.Session(); ok {
			data.Principal = &sess.Principal
		}
	}
	s.render(w, http.StatusForbidden, "denied", data)
}

// dashboard shows only the actions the principal's role allows.
func (s *Server) dashboard(_ context.Context, _ *client.Client, p person.Principal) (string, any, error) {
	data := viewData{Title: "Dashboard", Principal: &p}
	for _, l := range dashboardLinks {
		if s.policy.Check(&p, l.op) == nil {
			data.Links = append(data.Links, l)
		}
	}
	return "dashboard", data, nil
}

func (s *Server) patients(ctx context.Context, c *client.Client, p person.Principal) (string, any, error) {
	items, err := c.ListPatients(ctx)
	if err != nil {
		return "", nil, err
	}
	data := viewData{Title: "Patients", Principal: &p, Columns: []string{"ID", "Name", "Ward", "Admitted"}}
	for _, it := range items {
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(it.ID, 10), it.FullName, it.Ward, it.AdmittedAt.Format("2006-01-02 15:04"),
		})
	}
	return "list", data, nil
}

func (s *Server) equipment(ctx context.Context, c *client.Client, p person.Principal) (string, any, error) {
	items, err := c.ListEquipment(ctx)
	if err != nil {
		return "", nil, err
	}
	data := viewData{Title: "Equipment", Principal: &p, Columns: []string{"ID", "Name", "Status", "Location"}}
	for _, it := range items {
		data.Rows = append(data.Rows, []string{strconv.FormatInt(it.ID, 10), it.Name, it.Status, it.Location})
	}
	return "list", data, nil
}

func (s *Server) staff(ctx context.Context, c *client.Client, p person.Principal) (string, any, error) {
	items, err := c.ListStaff(ctx)
	if err != nil {
		return "", nil, err
	}
	data := viewData{Title: "Staff", Principal: &p, Columns: []string{"ID", "Username", "Role"}}
	for _, it := range items {
		data.Rows = append(data.Rows, []string{strconv.FormatInt(it.ID, 10), it.Username, string(it.Role)})
	}
	return "list", data, nil
}
