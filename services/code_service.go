package services

import (
	"chatcode/contract"
	"chatcode/domain/chat"
	"chatcode/domain/mimetypes"
	"chatcode/errors"
	"chatcode/infrastructure/storage"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ICodeService interface {
	Run(ctx context.Context, cmd chat.RunCodeCommand) (chat.CodeRun, error)
	Templates() map[chat.Language]string
}

// CodeService accepts code runs for a room and waits for the simulated result.
type CodeService struct {
	log       *slog.Logger
	validator *validator.Validate
	rooms     storage.IRoomRepository
	runner    contract.CodeRunner
}

func NewCodeService(log *slog.Logger, rooms storage.IRoomRepository, runner contract.CodeRunner) *CodeService {
	return &CodeService{log: log, validator: validator.New(), rooms: rooms, runner: runner}
}

// Run queues the snippet and blocks until its output is ready or ctx is done.
// An empty snippet runs the language template.
func (s *CodeService) Run(ctx context.Context, cmd chat.RunCodeCommand) (chat.CodeRun, error) {
	cmd.Language = chat.Language(strings.ToLower(string(cmd.Language)))
	if !cmd.Language.Supported() {
		return chat.CodeRun{}, fmt.Errorf("%w: %q", errors.ErrUnknownLanguage, cmd.Language)
	}
	if strings.TrimSpace(cmd.Code) == "" {
		cmd.Code = cmd.Language.DefaultCode()
	}
	if err := s.validator.Struct(cmd); err != nil {
		return chat.CodeRun{}, fmt.Errorf("%w: %v", errors.ErrInvalidCommand, err)
	}
	if mt, ok := mimetypes.DetectSnippet([]byte(cmd.Code)); !ok {
		return chat.CodeRun{}, fmt.Errorf("%w: detected %s", errors.ErrBinarySnippet, mt)
	}
	if _, err := s.rooms.GetRoom(cmd.Room); err != nil {
		return chat.CodeRun{}, err
	}

	job := chat.NewCodeJob(cmd)
	if err := s.runner.Submit(job); err != nil {
		return chat.CodeRun{}, err
	}
	s.log.Debug("Code run queued", "room", cmd.Room, "language", cmd.Language)

	select {
	case run := <-job.Reply:
		return run, nil
	case <-ctx.Done():
		return chat.CodeRun{}, ctx.Err()
	}
}

// Templates returns the starter snippet of every supported language.
func (s *CodeService) Templates() map[chat.Language]string {
	templates := make(map[chat.Language]string, len(chat.Languages()))
	for _, l := range chat.Languages() {
		templates[l] = l.DefaultCode()
	}
	return templates
}
