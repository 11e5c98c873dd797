package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/outline"
	"github.com/estetika/academy/core/program"
	appfs "github.com/estetika/academy/fs"
)

const demoSeed = "seed/demo.yaml"

type (
	seedFile struct {
		Users    []seedUser    `yaml:"users"`
		Programs []seedProgram `yaml:"programs"`
		Grants   []seedGrant   `yaml:"grants"`
	}

	seedUser struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Admin    bool   `yaml:"admin"`
	}

	seedProgram struct {
		Title       string     `yaml:"title"`
		Description string     `yaml:"description"`
		Status      string     `yaml:"status"`
		CoverImage  string     `yaml:"cover_image"`
		Outline     []seedNode `yaml:"outline"`
	}

	// seedNode sets exactly one of Section, Subsection or Lesson, its title.
	seedNode struct {
		Section     string     `yaml:"section"`
		Subsection  string     `yaml:"subsection"`
		Lesson      string     `yaml:"lesson"`
		Description string     `yaml:"description"`
		Published   *bool      `yaml:"published"`
		Children    []seedNode `yaml:"children"`
	}

	seedGrant struct {
		Email   string `yaml:"email"`
		Program string `yaml:"program"` // title
		Days    int    `yaml:"days"`    // open ended when 0
		Reason  string `yaml:"reason"`
	}

	seedResult struct {
		users, programs, lessons, grants int
	}
)

func (n seedNode) kind() (outline.Kind, string, error) {
	var kind outline.Kind
	var title string
	var set int
	for k, t := range map[outline.Kind]string{
		outline.KindSection:    n.Section,
		outline.KindSubsection: n.Subsection,
		outline.KindLesson:     n.Lesson,
	} {
		if t != "" {
			kind, title = k, t
			set++
		}
	}
	if set != 1 {
		return "", "", errors.New("outline node needs exactly one of section, subsection or lesson")
	}
	if kind == outline.KindLesson && len(n.Children) > 0 {
		return "", "", errors.Wrapf(outline.ErrNotContainer, "lesson %q", title)
	}
	return kind, title, nil
}

func readSeed(file string) (seedFile, error) {
	var raw []byte
	var err error
	if file == "" {
		raw, err = appfs.FS.ReadFile(demoSeed)
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return seedFile{}, errors.Wrap(err, "reading seed file")
	}

	var data seedFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err = dec.Decode(&data); err != nil {
		return seedFile{}, errors.Wrap(err, "decoding seed file")
	}
	return data, nil
}

// seed loads data. Users are upserted by email, programs whose title already exists
// are skipped and so are grants the student already holds.
func (cli *commandLine) seed(ctx context.Context, data seedFile) (seedResult, error) {
	var res seedResult

	for _, su := range data.Users {
		if _, err := cli.addUser(ctx, su.Name, su.Email, su.Password, su.Admin); err != nil {
			return res, errors.Wrapf(err, "seeding user %s", su.Email)
		}
		res.users++
	}

	existing, err := cli.programs.Query(ctx, &program.QueryFilter{}, nil)
	if err != nil {
		return res, errors.Wrap(err, "querying programs")
	}
	byTitle := make(map[string]program.Program, len(existing))
	for _, p := range existing {
		byTitle[strings.ToLower(p.Title)] = p
	}

	for _, sp := range data.Programs {
		if _, ok := byTitle[strings.ToLower(sp.Title)]; ok {
			continue
		}
		prog, err := cli.seedProgram(ctx, sp, &res)
		if err != nil {
			return res, errors.Wrapf(err, "seeding program %q", sp.Title)
		}
		byTitle[strings.ToLower(prog.Title)] = prog
		res.programs++
	}

	for _, sg := range data.Grants {
		prog, ok := byTitle[strings.ToLower(sg.Program)]
		if !ok {
			return res, errors.Wrapf(program.ErrNotFound, "seeding grant to %q", sg.Program)
		}
		granted, err := cli.seedGrant(ctx, sg, prog)
		if err != nil {
			return res, errors.Wrapf(err, "seeding grant of %s to %q", sg.Email, sg.Program)
		}
		if granted {
			res.grants++
		}
	}
	return res, nil
}

func (cli *commandLine) seedProgram(ctx context.Context, sp seedProgram, res *seedResult) (program.Program, error) {
	status := program.Status(sp.Status)
	switch status {
	case "", program.StatusPublished, program.StatusHidden:
	default:
		return program.Program{}, fmt.Errorf("unknown status %q", sp.Status)
	}

	prog, err := cli.programs.Create(ctx, program.NewProgram{
		Title:       sp.Title,
		Description: sp.Description,
		Status:      status,
		CoverImage:  sp.CoverImage,
	})
	if err != nil {
		return program.Program{}, err
	}
	// a program is seeded whole or not at all, so that a rerun retries it
	var lessons int
	if err = cli.seedOutline(ctx, prog.ID, "", sp.Outline, &lessons); err != nil {
		if delErr := cli.programs.Delete(ctx, prog.ID); delErr != nil {
			return program.Program{}, errors.Wrapf(err, "removing partial program: %v", delErr)
		}
		return program.Program{}, err
	}
	res.lessons += lessons
	return cli.programs.GetByID(ctx, prog.ID)
}

func (cli *commandLine) seedOutline(ctx context.Context, programID, parentID string, nodes []seedNode, lessons *int) error {
	for _, n := range nodes {
		kind, title, err := n.kind()
		if err != nil {
			return err
		}

		var node outline.Node
		switch kind {
		case outline.KindSection:
			_, node, err = cli.programs.AddSection(ctx, programID, program.NewNode{ParentID: parentID, Title: title})
		case outline.KindSubsection:
			_, node, err = cli.programs.AddSubsection(ctx, programID, program.NewNode{ParentID: parentID, Title: title})
		case outline.KindLesson:
			_, _, err = cli.programs.AddLesson(ctx, programID, program.NewLesson{
				ParentID:    parentID,
				Title:       title,
				Description: n.Description,
				Published:   n.Published,
			})
			if err == nil {
				*lessons++
			}
		}
		if err != nil {
			return err
		}

		if node != nil {
			if err = cli.seedOutline(ctx, programID, node.Head().ID, n.Children, lessons); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cli *commandLine) seedGrant(ctx context.Context, sg seedGrant, prog program.Program) (bool, error) {
	usr, err := cli.usrRepo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(sg.Email)))
	if err != nil {
		return false, err
	}
	ok, err := cli.learning.HasAccess(ctx, usr.ID, prog.ID)
	if err != nil || ok {
		return false, err
	}

	ng := learning.NewGrant{UserID: usr.ID, ProgramID: prog.ID, Reason: sg.Reason}
	if sg.Days > 0 {
		end := time.Now().AddDate(0, 0, sg.Days)
		ng.EndDate = &end
	}
	if _, err = cli.learning.Grant(ctx, "", ng); err != nil {
		return false, err
	}
	return true, nil
}
