package server

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/syllabus-tracker/internal/common"
	"github.com/joseph-ayodele/syllabus-tracker/internal/pipeline"
	"github.com/joseph-ayodele/syllabus-tracker/internal/staging"
)

func (s *SyllabusService) state() (*structpb.Struct, error) {
	return respond(map[string]any{"state": encodeState(s.pipe.Snapshot(), s.loc)})
}

func (s *SyllabusService) GetState(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.state()
}

func (s *SyllabusService) StartScan(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.pipe.StartScan(ctx); err != nil {
		return nil, toStatus(err)
	}
	return s.state()
}

// SubmitPages loads {paths: [...]} and starts processing them. With
// {start: true} a scan is opened first when the pipeline is idle; with
// {wait: true} the call returns once the attempt has finished.
func (s *SyllabusService) SubmitPages(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := fieldsOf(in)
	paths := req.strs("paths")
	if len(paths) == 0 {
		return nil, common.InvalidArgumentErrorf("paths must list at least one file")
	}

	if req.boolean("start") {
		if _, idle := s.pipe.Snapshot().(pipeline.Home); idle {
			if err := s.pipe.StartScan(ctx); err != nil {
				return nil, toStatus(err)
			}
		}
	}

	pages, err := s.loader.Load(ctx, paths)
	if err != nil {
		s.logger.Error("server.submit.load_failed", "files", len(paths), "error", err)
		return nil, toStatus(err)
	}
	if err := s.pipe.SubmitPages(ctx, pages); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("server.submit.ok", "pages", len(pages))

	if req.boolean("wait") {
		if _, err := s.pipe.Await(ctx, settled); err != nil {
			return nil, toStatus(err)
		}
	}
	return s.state()
}

// settled holds once no attempt is running.
func settled(st pipeline.State) bool {
	if ld, ok := st.(pipeline.Loading); ok {
		return !ld.InFlight()
	}
	return true
}

func (s *SyllabusService) Retry(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.pipe.Retry(ctx); err != nil {
		return nil, toStatus(err)
	}
	if fieldsOf(in).boolean("wait") {
		if _, err := s.pipe.Await(ctx, settled); err != nil {
			return nil, toStatus(err)
		}
	}
	return s.state()
}

func (s *SyllabusService) Cancel(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.pipe.Cancel(ctx); err != nil {
		return nil, toStatus(err)
	}
	return s.state()
}

func (s *SyllabusService) Dismiss(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.pipe.Dismiss(ctx); err != nil {
		return nil, toStatus(err)
	}
	return s.state()
}

// ApplyEdit applies one review command. op is toggle, edit, delete, add
// or course.
func (s *SyllabusService) ApplyEdit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	cmd, err := editCommand(fieldsOf(in))
	if err != nil {
		return nil, err
	}
	if err := s.pipe.Edit(ctx, cmd); err != nil {
		return nil, toStatus(err)
	}
	return s.state()
}

func editCommand(req request) (staging.Command, error) {
	op := req.str("op")
	id := req.str("id")
	needID := func() error {
		if id == "" {
			return common.InvalidArgumentErrorf("id is required for %s", op)
		}
		return nil
	}

	switch op {
	case "toggle":
		if err := needID(); err != nil {
			return nil, err
		}
		return staging.Toggle{ID: id}, nil
	case "delete":
		if err := needID(); err != nil {
			return nil, err
		}
		return staging.Delete{ID: id}, nil
	case "edit":
		if err := needID(); err != nil {
			return nil, err
		}
		cmd := staging.EditItem{ID: id}
		var err error
		if cmd.Title, err = req.optStr("title"); err != nil {
			return nil, err
		}
		if cmd.Date, err = req.optStr("date"); err != nil {
			return nil, err
		}
		if cmd.Hour, err = req.optInt("hour"); err != nil {
			return nil, err
		}
		if cmd.Minute, err = req.optInt("minute"); err != nil {
			return nil, err
		}
		if cmd.Type, err = req.optStr("type"); err != nil {
			return nil, err
		}
		return cmd, nil
	case "add":
		hour, err := req.optInt("hour")
		if err != nil {
			return nil, err
		}
		minute, err := req.optInt("minute")
		if err != nil {
			return nil, err
		}
		cmd := staging.Add{Title: req.str("title"), Date: req.str("date"), Type: req.str("type")}
		if hour != nil {
			cmd.Hour = *hour
		}
		if minute != nil {
			cmd.Minute = *minute
		}
		return cmd, nil
	case "course":
		var (
			cmd staging.EditCourse
			err error
		)
		if cmd.Name, err = req.optStr("name"); err != nil {
			return nil, err
		}
		if cmd.Code, err = req.optStr("code"); err != nil {
			return nil, err
		}
		if cmd.Icon, err = req.optStr("icon"); err != nil {
			return nil, err
		}
		if cmd.Color, err = req.optStr("color"); err != nil {
			return nil, err
		}
		return cmd, nil
	case "":
		return nil, common.InvalidArgumentErrorf("op is required")
	}
	return nil, common.InvalidArgumentErrorf("unknown op %q", op)
}

// Save commits the selected rows. A commit that saved nothing is not an
// RPC error: the result and the Reviewing state carry the failure.
func (s *SyllabusService) Save(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.pipe.Save(ctx)
	if err != nil {
		s.logger.Warn("server.save.failed", "error", err)
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"result": encodeCommit(res),
		"state":  encodeState(s.pipe.Snapshot(), s.loc),
	})
}

func (s *SyllabusService) RequestCalendarAccess(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	granted, err := s.pipe.RequestCalendarAccess(ctx)
	if common.HasCode(err, common.CodeCalendarPermission) {
		s.logger.Info("server.calendar.access", "granted", false, "error", err)
		return respond(map[string]any{"granted": false, "message": err.Error()})
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"granted": granted})
}

func (s *SyllabusService) ExportCalendar(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.pipe.ExportCalendar(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{
		"result": encodeExport(res),
		"state":  encodeState(s.pipe.Snapshot(), s.loc),
	})
}
