package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"chat-front/internal/domain"
	"chat-front/internal/session"
)

type chatLister interface {
	ListSessions(ctx context.Context) ([]domain.SessionSummary, error)
}

type modelCatalog interface {
	Models(ctx context.Context) ([]domain.Model, error)
	DeleteCustomModel(ctx context.Context, id string) (bool, error)
}

// shell es el bucle de terminal sobre el controlador de sesión.
type shell struct {
	ctrl   *session.Controller
	chats  chatLister
	models modelCatalog
	out    io.Writer
	// defaultModel reemplaza a un modelo personalizado borrado si estaba seleccionado.
	defaultModel string

	// listed es la última lista mostrada con /chats; /open y /delete usan sus índices.
	listed []domain.SessionSummary
}

func newShell(ctrl *session.Controller, chats chatLister, models modelCatalog, defaultModel string, out io.Writer) *shell {
	return &shell{ctrl: ctrl, chats: chats, models: models, defaultModel: defaultModel, out: out}
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	reader := bufio.NewReader(in)
	s.printHelp()
	for {
		fmt.Fprintf(s.out, "Tu (%s) > ", domain.DisplayName(s.ctrl.State().Model))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		line = strings.TrimSpace(line)
		if line != "" && !s.handle(ctx, line) {
			return nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
	}
}

// handle ejecuta una línea. Devuelve false cuando hay que salir.
func (s *shell) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		s.send(ctx, line)
		return true
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/salir":
		fmt.Fprintln(s.out, "Saliendo...")
		return false
	case "/new":
		s.ctrl.StartNewChat()
	case "/chats":
		s.listChats(ctx)
	case "/open":
		if chat, ok := s.pick(arg); ok {
			s.open(ctx, chat)
		}
	case "/delete":
		if chat, ok := s.pick(arg); ok {
			_ = s.ctrl.DeleteSession(ctx, chat.ID)
		}
	case "/model":
		s.selectModel(ctx, arg)
	case "/models":
		s.listModels(ctx)
	case "/model-delete":
		s.deleteModel(ctx, arg)
	case "/help":
		s.printHelp()
	default:
		fmt.Fprintf(s.out, "Comando desconocido: %s\n", cmd)
	}
	return true
}

func (s *shell) send(ctx context.Context, text string) {
	// Los errores ya llegan como notificación.
	if err := s.ctrl.SendMessage(ctx, text); err != nil {
		return
	}
	st := s.ctrl.State()
	if n := len(st.Messages); n > 0 && st.Messages[n-1].Role == domain.RoleAssistant {
		fmt.Fprintf(s.out, "%s > %s\n", domain.DisplayName(st.Model), st.Messages[n-1].Content)
	}
}

func (s *shell) listChats(ctx context.Context) {
	chats, err := s.chats.ListSessions(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "No se pudieron cargar los chats: %v\n", err)
		return
	}
	s.listed = chats
	if len(chats) == 0 {
		fmt.Fprintln(s.out, "No hay chats todavía.")
		return
	}
	active := s.ctrl.State().ActiveSessionID
	for i, c := range chats {
		marker := " "
		if c.ID == active {
			marker = "*"
		}
		title := c.Title
		if title == "" {
			title = "(sin título)"
		}
		fmt.Fprintf(s.out, "%s[%d] %s (%s)\n", marker, i+1, title, domain.DisplayName(c.Model))
	}
}

func (s *shell) pick(arg string) (domain.SessionSummary, bool) {
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 1 || idx > len(s.listed) {
		fmt.Fprintln(s.out, "Seleccion invalida. Usa /chats para ver la lista.")
		return domain.SessionSummary{}, false
	}
	return s.listed[idx-1], true
}

func (s *shell) open(ctx context.Context, chat domain.SessionSummary) {
	if err := s.ctrl.SwitchSession(ctx, chat.ID, chat.Model); err != nil {
		return
	}
	st := s.ctrl.State()
	fmt.Fprintf(s.out, "---- %s ----\n", chat.Title)
	for _, m := range st.Messages {
		who := "Tu"
		if m.Role == domain.RoleAssistant {
			who = domain.DisplayName(st.Model)
		}
		fmt.Fprintf(s.out, "%s > %s\n", who, m.Content)
	}
}

func (s *shell) selectModel(ctx context.Context, id string) {
	models, err := s.models.Models(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Modelos personalizados no disponibles: %v\n", err)
	}
	id = strings.TrimSpace(id)
	for _, m := range models {
		if m.ID == id {
			s.ctrl.SelectModel(id)
			fmt.Fprintf(s.out, "Modelo: %s. Nueva conversación.\n", m.Name)
			return
		}
	}
	fmt.Fprintf(s.out, "Modelo desconocido: %q. Usa /models.\n", id)
}

func (s *shell) deleteModel(ctx context.Context, id string) {
	id = domain.NormalizeModelID(id)
	if domain.IsBuiltin(id) {
		fmt.Fprintf(s.out, "%s es un modelo incorporado, no se puede borrar.\n", id)
		return
	}
	deleted, err := s.models.DeleteCustomModel(ctx, id)
	if err != nil {
		fmt.Fprintf(s.out, "No se pudo borrar el modelo: %v\n", err)
		return
	}
	if !deleted {
		fmt.Fprintf(s.out, "Modelo desconocido: %q. Usa /models.\n", id)
		return
	}
	fmt.Fprintf(s.out, "Modelo %s borrado.\n", id)
	if s.ctrl.DropModel(id, s.defaultModel) {
		fmt.Fprintf(s.out, "Modelo: %s. Nueva conversación.\n", domain.DisplayName(s.ctrl.State().Model))
	}
}

func (s *shell) listModels(ctx context.Context) {
	models, err := s.models.Models(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Modelos personalizados no disponibles: %v\n", err)
	}
	selected := s.ctrl.State().Model
	for _, m := range models {
		marker := " "
		if m.ID == selected {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %s (%s)\n", marker, m.ID, m.Name)
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "===== Chat =====")
	fmt.Fprintln(s.out, "Escribe un mensaje para enviarlo.")
	fmt.Fprintln(s.out, "/new  /chats  /open N  /delete N  /model ID  /models  /model-delete ID  /quit")
}

func printNotification(w io.Writer, n session.Notification) {
	prefix := "--"
	if n.Variant == session.VariantDestructive {
		prefix = "!!"
	}
	fmt.Fprintf(w, "%s %s: %s\n", prefix, n.Title, n.Description)
}
