package main

import (
	"encoding/json"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/gcbaptista/notes-discovery/internal/logger"
	"github.com/gcbaptista/notes-discovery/internal/session"
	"github.com/gcbaptista/notes-discovery/model"
	"github.com/gcbaptista/notes-discovery/services"
)

func searchCommand(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	log, err := logger.New(settings.Server.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	src, closeSource, err := openSource(settings.Source, log)
	if err != nil {
		return err
	}
	defer closeSource()

	sess, err := session.New(src, settings, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	query := services.SearchQuery{
		QueryString: strings.Join(c.Args().Slice(), " "),
		Page:        c.Int("page"),
		PageSize:    c.Int("page-size"),
		Filters: model.SearchFilters{
			SubjectID:  c.String("subject"),
			University: c.String("university"),
			FileKind:   model.FileKind(strings.ToLower(c.String("file-kind"))),
		},
	}
	if c.IsSet("min-rating") {
		minRating := c.Float64("min-rating")
		query.Filters.MinRating = &minRating
	}

	result, err := sess.Search(c.Context, query)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(c.App.Writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}
