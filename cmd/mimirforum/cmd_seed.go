/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/friendsincode/mimir_forum/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load forum directory data from a YAML file",
	Long:  "Load companies, students, committee members and users from a YAML seed file. Existing records (matched by name or email) are skipped.",
	RunE:  runSeed,
}

var (
	seedFilePath string
	seedDryRun   bool
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVar(&seedFilePath, "file", "", "Path to the YAML seed file (required)")
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "Parse and report without writing")
	seedCmd.MarkFlagRequired("file")
}

type seedFile struct {
	Companies []struct {
		Name                  string   `yaml:"name"`
		Room                  string   `yaml:"room"`
		Sector                string   `yaml:"sector"`
		AcceptedOpportunities []string `yaml:"accepted_opportunities"`
		DailyCapacity         int      `yaml:"daily_capacity"`
	} `yaml:"companies"`

	Students []struct {
		FullName        string `yaml:"full_name"`
		Email           string `yaml:"email"`
		Kind            string `yaml:"kind"`
		Program         string `yaml:"program"`
		CommitteeMember bool   `yaml:"committee_member"`
	} `yaml:"students"`

	Committee []struct {
		FullName string `yaml:"full_name"`
		Email    string `yaml:"email"`
		Phone    string `yaml:"phone"`
	} `yaml:"committee"`

	Users []struct {
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	raw, err := os.ReadFile(seedFilePath)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, u := range seed.Users {
		switch models.RoleName(u.Role) {
		case models.RoleAdmin, models.RoleOrganizer, models.RoleCommittee, models.RoleCompany, models.RoleStudent:
		default:
			return fmt.Errorf("user %q has unknown role %q", u.Username, u.Role)
		}
		if u.Password == "" {
			return fmt.Errorf("user %q has no password", u.Username)
		}
	}

	logger.Info().
		Int("companies", len(seed.Companies)).
		Int("students", len(seed.Students)).
		Int("committee", len(seed.Committee)).
		Int("users", len(seed.Users)).
		Msg("seed file parsed")

	if seedDryRun {
		logger.Info().Msg("dry run, nothing written")
		return nil
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	created, skipped := 0, 0

	for _, c := range seed.Companies {
		company := models.Company{
			Name:                  c.Name,
			Room:                  c.Room,
			Sector:                c.Sector,
			AcceptedOpportunities: models.StringList(c.AcceptedOpportunities),
			DailyCapacity:         c.DailyCapacity,
			Active:                true,
		}
		if seedRecord(database, &company, "name = ?", c.Name) {
			created++
		} else {
			skipped++
		}
	}

	for _, s := range seed.Students {
		student := models.Student{
			FullName:        s.FullName,
			Email:           s.Email,
			Kind:            models.StudentKind(s.Kind),
			Program:         s.Program,
			CommitteeMember: s.CommitteeMember,
		}
		if student.Kind == "" {
			student.Kind = models.StudentExternal
		}
		if seedRecord(database, &student, "email = ?", s.Email) {
			created++
		} else {
			skipped++
		}
	}

	for _, m := range seed.Committee {
		member := models.CommitteeMember{
			FullName: m.FullName,
			Email:    m.Email,
			Phone:    m.Phone,
			Active:   true,
		}
		if seedRecord(database, &member, "email = ?", m.Email) {
			created++
		} else {
			skipped++
		}
	}

	for _, u := range seed.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %q: %w", u.Username, err)
		}
		user := models.User{
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: string(hash),
			Role:         models.RoleName(u.Role),
			Active:       true,
		}
		if seedRecord(database, &user, "username = ?", u.Username) {
			created++
		} else {
			skipped++
		}
	}

	logger.Info().Int("created", created).Int("skipped", skipped).Msg("seed complete")
	return nil
}

// seedRecord creates the record unless one already matches the query.
// Returns true when a record was created.
func seedRecord(database *gorm.DB, record any, query string, arg any) bool {
	var count int64
	if err := database.Model(record).Where(query, arg).Count(&count).Error; err != nil {
		logger.Error().Err(err).Msg("seed lookup failed")
		return false
	}
	if count > 0 {
		return false
	}
	if err := database.Create(record).Error; err != nil {
		logger.Error().Err(err).Msg("seed create failed")
		return false
	}
	return true
}
