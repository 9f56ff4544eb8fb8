// twc-login is an interactive terminal login for a twitter-clone API. It
// drives the full client flow against a live server (or, with -fake-api, an
// in-process fake): bootstrap, credentials, the optional second factor, and
// a session view fed by store subscriptions.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	authclient "github.com/LiterallyLink/twitter-clone-sub001"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/apitest"
	"github.com/LiterallyLink/twitter-clone-sub001/session"
)

type appConfig struct {
	BaseURL     string        `env:"TWC_API_URL" envDefault:"http://localhost:3000/api"`
	Environment string        `env:"TWC_ENV" envDefault:"development"`
	SentryDSN   string        `env:"SENTRY_DSN"`
	Timeout     time.Duration `env:"TWC_TIMEOUT" envDefault:"15s"`
}

func main() {
	fakeAPI := flag.Bool("fake-api", false, "run against an in-process fake API seeded with demo@example.com / demo-password")
	flag.Parse()

	_ = godotenv.Load()

	var cfg appConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("twc-login: parse environment: %v", err)
	}

	if *fakeAPI {
		srv := apitest.New()
		defer srv.Close()
		srv.Seed("demo", "demo@example.com", "demo-password")
		cfg.BaseURL = srv.URL()
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("twc-login: sentry init: %v", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	clientCfg := authclient.DefaultConfig()
	clientCfg.API.BaseURL = cfg.BaseURL
	clientCfg.API.Timeout = cfg.Timeout

	client, err := authclient.New().WithConfig(clientCfg).WithMetricsEnabled(true).Build()
	if err != nil {
		log.Fatalf("twc-login: build client: %v", err)
	}
	defer client.Close()

	p := tea.NewProgram(newModel(client))

	// Store changes flow into the TUI as messages; the subscription fires on
	// every snapshot transition, including refresh-driven ones.
	cancel := client.Session().Subscribe(func(snap session.Snapshot) {
		p.Send(sessionMsg(snap))
	})
	defer cancel()

	if _, err := p.Run(); err != nil {
		sentry.CaptureException(err)
		fmt.Fprintf(os.Stderr, "twc-login: %v\n", err)
		os.Exit(1)
	}
}

/* ==== MESSAGES ==== */

type sessionMsg session.Snapshot

type bootstrapDoneMsg struct{}

type loginResultMsg struct {
	result *authclient.LoginResult
	err    error
}

type twoFactorResultMsg struct {
	user *authclient.UserProfile
	err  error
}

type logoutDoneMsg struct{ err error }

/* ==== MODEL ==== */

type phase int

const (
	phaseBootstrap phase = iota
	phaseLogin
	phaseTwoFactor
	phaseSession
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

type model struct {
	client *authclient.Client

	phase      phase
	email      textinput.Model
	password   textinput.Model
	code       textinput.Model
	backup     bool
	remember   bool
	busy       bool
	errText    string
	snap       session.Snapshot
	focusIndex int
}

func newModel(client *authclient.Client) model {
	email := textinput.New()
	email.Placeholder = "email or username"
	email.Prompt = "> "
	email.PromptStyle = promptStyle
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "> "
	password.PromptStyle = promptStyle
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'

	code := textinput.New()
	code.Placeholder = "6-digit code"
	code.Prompt = "> "
	code.PromptStyle = promptStyle
	code.CharLimit = 12

	return model{
		client:   client,
		phase:    phaseBootstrap,
		email:    email,
		password: password,
		code:     code,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bootstrap())
}

func (m model) bootstrap() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = m.client.Bootstrap(ctx)
		return bootstrapDoneMsg{}
	}
}

func (m model) submitLogin() tea.Cmd {
	identifier, password := m.email.Value(), m.password.Value()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		result, err := m.client.Login(ctx, identifier, password)
		return loginResultMsg{result: result, err: err}
	}
}

func (m model) submitCode() tea.Cmd {
	sf := authclient.SecondFactor{
		Code:           m.code.Value(),
		UseBackupCode:  m.backup,
		RememberDevice: m.remember,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		user, err := m.client.ConfirmLogin2FA(ctx, sf)
		return twoFactorResultMsg{user: user, err: err}
	}
}

func (m model) logout() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return logoutDoneMsg{err: m.client.Logout(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case sessionMsg:
		m.snap = session.Snapshot(msg)
		return m, nil

	case bootstrapDoneMsg:
		snap := m.client.Session().Snapshot()
		m.snap = snap
		if snap.IsAuthenticated {
			m.phase = phaseSession
		} else {
			m.phase = phaseLogin
		}
		return m, nil

	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		if msg.result.TwoFactorRequired {
			m.phase = phaseTwoFactor
			m.code.Reset()
			return m, m.code.Focus()
		}
		m.phase = phaseSession
		return m, nil

	case twoFactorResultMsg:
		m.busy = false
		if msg.err != nil {
			// Challenge stays pending server-side; let the user retry.
			m.errText = msg.err.Error()
			m.code.Reset()
			return m, nil
		}
		m.errText = ""
		m.phase = phaseSession
		return m, nil

	case logoutDoneMsg:
		m.busy = false
		m.phase = phaseLogin
		m.password.Reset()
		m.errText = ""
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}

	if m.busy {
		return m, nil
	}

	switch m.phase {
	case phaseLogin:
		switch msg.String() {
		case "tab", "shift+tab":
			m.focusIndex = 1 - m.focusIndex
			if m.focusIndex == 0 {
				m.password.Blur()
				return m, m.email.Focus()
			}
			m.email.Blur()
			return m, m.password.Focus()
		case "enter":
			if m.email.Value() == "" || m.password.Value() == "" {
				m.errText = "email and password are required"
				return m, nil
			}
			m.busy = true
			m.errText = ""
			return m, m.submitLogin()
		}

	case phaseTwoFactor:
		switch msg.String() {
		case "ctrl+b":
			m.backup = !m.backup
			return m, nil
		case "ctrl+r":
			m.remember = !m.remember
			return m, nil
		case "enter":
			if m.code.Value() == "" {
				return m, nil
			}
			m.busy = true
			return m, m.submitCode()
		}

	case phaseSession:
		switch msg.String() {
		case "l":
			m.busy = true
			return m, m.logout()
		case "q":
			return m, tea.Quit
		}
	}

	return m.updateInputs(msg)
}

func (m model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.email, cmd = m.email.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)
	m.code, cmd = m.code.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	switch m.phase {
	case phaseBootstrap:
		return titleStyle.Render("twitter-clone login") + "\n\n" +
			labelStyle.Render("connecting...") + "\n"

	case phaseLogin:
		s := titleStyle.Render("twitter-clone login") + "\n\n"
		s += labelStyle.Render("identifier") + "\n" + m.email.View() + "\n"
		s += labelStyle.Render("password") + "\n" + m.password.View() + "\n\n"
		if m.busy {
			s += labelStyle.Render("signing in...") + "\n"
		}
		if m.errText != "" {
			s += errorStyle.Render(m.errText) + "\n"
		}
		s += labelStyle.Render("tab to switch, enter to submit, esc to quit") + "\n"
		return s

	case phaseTwoFactor:
		mode := "authenticator code"
		if m.backup {
			mode = "backup code"
		}
		s := titleStyle.Render("second factor") + "\n\n"
		s += labelStyle.Render(mode) + "\n" + m.code.View() + "\n\n"
		s += labelStyle.Render(fmt.Sprintf("remember device: %v", m.remember)) + "\n"
		if m.busy {
			s += labelStyle.Render("verifying...") + "\n"
		}
		if m.errText != "" {
			s += errorStyle.Render(m.errText) + "\n"
		}
		s += labelStyle.Render("ctrl+b backup code, ctrl+r remember device, enter to submit") + "\n"
		return s

	default:
		s := titleStyle.Render("session") + "\n\n"
		if m.snap.User != nil {
			s += okStyle.Render("signed in as @"+m.snap.User.Username) + "\n"
			s += labelStyle.Render(m.snap.User.Email) + "\n"
		} else if m.snap.IsLoading {
			s += labelStyle.Render("checking session...") + "\n"
		} else {
			s += errorStyle.Render("not authenticated") + "\n"
		}
		if m.snap.Err != "" {
			s += errorStyle.Render(m.snap.Err) + "\n"
		}
		s += "\n" + labelStyle.Render("l to log out, q to quit") + "\n"
		return s
	}
}
