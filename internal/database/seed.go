package database

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jimdaga/casebook/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const devStudentEmail = "student@casebook.local"

// SeedDevData populates the database with development data.
// Idempotent: skips if the dev student already exists.
func SeedDevData(db *gorm.DB) error {
	var existing models.User
	if err := db.Where("email = ?", devStudentEmail).First(&existing).Error; err == nil {
		slog.Info("Seed data already exists, skipping")
		return nil
	}

	student := models.User{Email: devStudentEmail, Name: "Dev Student", Role: models.RoleStudent, Onboarded: true}
	admin := models.User{Email: "admin@casebook.local", Name: "Dev Admin", Role: models.RoleAdmin, Onboarded: true}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&student).Error; err != nil {
			return err
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		identity := models.AuthIdentity{
			UserID:         student.ID,
			Provider:       "google",
			ProviderUserID: "dev-google-id-12345",
			AccessToken:    "dev-access-token-placeholder",
			RefreshToken:   "dev-refresh-token-placeholder",
		}
		if err := tx.Create(&identity).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		cases := []models.Case{
			{
				StudentID:           student.ID,
				Title:               "Broken lockers in the east wing",
				Category:            models.CategoryFacilities,
				Description:         "Three lockers near room 12 have been broken for weeks.",
				RedactedDescription: "Three lockers near a classroom have been broken for weeks.",
				Redacted:            true,
				Status:              models.CaseStatusResolved,
				EvidenceURL:         "https://files.casebook.local/lockers.jpg",
				EvidenceType:        "image",
				CreatedAt:           now.Add(-72 * time.Hour),
			},
			{
				StudentID:           student.ID,
				Title:               "Homework load before exams",
				Category:            models.CategoryAcademics,
				Description:         "Mr. Smith set four essays in the week before exams.",
				RedactedDescription: "A teacher set four essays in the week before exams.",
				Redacted:            true,
				Status:              models.CaseStatusResolved,
				EvidenceURLs:        mustJSON([]string{"https://files.casebook.local/plan.pdf", "https://files.casebook.local/list.png"}),
				CreatedAt:           now.Add(-48 * time.Hour),
			},
			{
				StudentID:           student.ID,
				Title:               "Name-calling in the canteen",
				Category:            models.CategoryBullying,
				Description:         "Jamie has been called names at lunch by the same group.",
				RedactedDescription: "A student has been called names at lunch by the same group.",
				Redacted:            true,
				Status:              models.CaseStatusResolved,
				EvidenceAggregate:   mustJSON(map[string]any{"count": 2, "types": []string{"video"}}),
				CreatedAt:           now.Add(-24 * time.Hour),
			},
			{
				StudentID:   student.ID,
				Title:       "Phone policy unclear",
				Category:    models.CategoryPolicy,
				Description: "Nobody knows whether phones are allowed during breaks.",
				Status:      models.CaseStatusSubmitted,
				CreatedAt:   now.Add(-2 * time.Hour),
			},
		}
		for i := range cases {
			cases[i].History = mustJSON([]models.CaseMessage{{
				ID:        "seed",
				Sender:    models.SenderAdmin,
				Text:      "Case submitted.",
				Timestamp: cases[i].CreatedAt,
			}})
			if err := tx.Create(&cases[i]).Error; err != nil {
				return err
			}
		}

		entry := models.JournalEntry{
			Title:           "News Update - " + now.Add(-96*time.Hour).Format("2006-01-02"),
			Content:         "Students reported recurring issues with shared spaces this week.",
			RelatedCaseIDs:  mustJSON([]string{cases[0].ID}),
			EvidenceSummary: mustJSON([]map[string]any{{"caseId": cases[0].ID, "evidenceCount": 1, "evidenceTypes": []string{"image"}}}),
			PublishedAt:     now.Add(-96 * time.Hour),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		slog.Info("Seeded dev data", "users", 2, "cases", len(cases), "journal_entries", 1)
		return nil
	})
}

func mustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(b)
}
