package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"flashcard-game-backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.GameTemplate{},
		&models.Game{},
		&models.FlashCard{},
		&models.FlashCardItem{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()

	user := models.User{Username: username, PasswordHash: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedGame(t *testing.T, db *gorm.DB, creatorID uint, slug string) *models.Game {
	t.Helper()

	tpl := models.GameTemplate{Slug: slug, Name: slug}
	require.NoError(t, db.Where("slug = ?", slug).FirstOrCreate(&tpl).Error)

	game := models.Game{CreatorID: creatorID, TemplateID: tpl.ID, Name: "untitled"}
	require.NoError(t, db.Create(&game).Error)
	return &game
}

type fakeFileStore struct {
	uploads    []string
	removed    []string
	failUpload bool
}

func (f *fakeFileStore) Upload(prefix, filename string, src io.Reader) (string, error) {
	if f.failUpload {
		return "", errors.New("disk full")
	}
	if src != nil {
		io.Copy(io.Discard, src)
	}
	path := fmt.Sprintf("%s/stored-%d%s", prefix, len(f.uploads), filepath.Ext(filename))
	f.uploads = append(f.uploads, path)
	return path, nil
}

func (f *fakeFileStore) Remove(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func textCard(question, answer string) CardInput {
	return CardInput{
		QuestionType: models.CardSideText,
		QuestionText: strPtr(question),
		BackType:     models.CardSideText,
		AnswerText:   answer,
	}
}

func newFlashCardEnv(t *testing.T) (*gorm.DB, *fakeFileStore, *FlashCardService, *models.User, *models.Game) {
	t.Helper()

	db := setupTestDB(t)
	files := &fakeFileStore{}
	svc := NewFlashCardService(db, files)
	owner := seedUser(t, db, "owner", models.RoleCreator)
	game := seedGame(t, db, owner.ID, models.FlashCardSlug)
	return db, files, svc, owner, game
}

func TestCreateFlashCard_Success(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	card := textCard("2+2=?", "4")
	card.IsCorrect = true

	ref, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:  "Math basics",
		Cards: []CardInput{card},
	})
	require.NoError(t, err)
	require.NotZero(t, ref.ID)
	require.Equal(t, game.ID, ref.GameID)

	var flash models.FlashCard
	require.NoError(t, db.Preload("Items").Where("game_id = ?", game.ID).First(&flash).Error)
	require.Equal(t, "Math basics", flash.Title)
	require.Len(t, flash.Items, 1)
	require.Equal(t, 0, flash.Items[0].Position)
	require.Equal(t, "2+2=?", *flash.Items[0].QuestionText)
	require.Nil(t, flash.Items[0].QuestionImage)
	require.Nil(t, flash.Items[0].BackImage)
	require.True(t, flash.Items[0].IsCorrect)

	var updated models.Game
	require.NoError(t, db.First(&updated, game.ID).Error)
	require.Equal(t, "Math basics", updated.Name)
	require.JSONEq(t, `{
		"type": "flash-card",
		"settings": null,
		"items": [{"question_type": "text", "question_text": "2+2=?", "question_image": null, "back_type": "text"}]
	}`, string(updated.GameSummary))
	require.NotContains(t, string(updated.GameSummary), "answer_text")
	require.NotContains(t, string(updated.GameSummary), "is_correct")
}

func TestCreateFlashCard_PublishAndSettings(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:                 "Vocab",
		Description:          strPtr("  basic words  "),
		Settings:             []byte(`{"shuffle":true}`),
		IsPublishImmediately: true,
		Cards:                []CardInput{textCard("dog", "perro")},
	})
	require.NoError(t, err)

	var flash models.FlashCard
	require.NoError(t, db.Where("game_id = ?", game.ID).First(&flash).Error)
	require.True(t, flash.IsPublished)
	require.Equal(t, "basic words", flash.Description)

	var updated models.Game
	require.NoError(t, db.First(&updated, game.ID).Error)
	require.True(t, updated.IsPublished)
	require.Contains(t, string(updated.GameSummary), `"shuffle":true`)
}

func TestCreateFlashCard_GameNotFound(t *testing.T) {
	_, _, svc, owner, _ := newFlashCardEnv(t)

	_, err := svc.Create(9999, owner.ID, CreateFlashCardInput{
		Name:  "x",
		Cards: []CardInput{textCard("q", "a")},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFlashCard_TemplateMismatch(t *testing.T) {
	db, _, svc, owner, _ := newFlashCardEnv(t)

	other := seedGame(t, db, owner.ID, "word-search")
	_, err := svc.Create(other.ID, owner.ID, CreateFlashCardInput{
		Name:  "x",
		Cards: []CardInput{textCard("q", "a")},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFlashCard_Forbidden(t *testing.T) {
	db, _, svc, _, game := newFlashCardEnv(t)

	stranger := seedUser(t, db, "stranger", models.RoleCreator)
	_, err := svc.Create(game.ID, stranger.ID, CreateFlashCardInput{
		Name:  "x",
		Cards: []CardInput{textCard("q", "a")},
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCreateFlashCard_Conflict(t *testing.T) {
	_, _, svc, owner, game := newFlashCardEnv(t)

	in := CreateFlashCardInput{Name: "x", Cards: []CardInput{textCard("q", "a")}}
	_, err := svc.Create(game.ID, owner.ID, in)
	require.NoError(t, err)

	_, err = svc.Create(game.ID, owner.ID, in)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateFlashCard_Validation(t *testing.T) {
	_, _, svc, owner, game := newFlashCardEnv(t)

	cases := []struct {
		name  string
		in    CreateFlashCardInput
		field string
	}{
		{"empty name", CreateFlashCardInput{Cards: []CardInput{textCard("q", "a")}}, "name"},
		{"no cards", CreateFlashCardInput{Name: "x"}, "cards"},
		{"bad question type", CreateFlashCardInput{Name: "x", Cards: []CardInput{{
			QuestionType: "video", BackType: models.CardSideText, AnswerText: "a",
		}}}, "question_type"},
		{"bad back type", CreateFlashCardInput{Name: "x", Cards: []CardInput{{
			QuestionType: models.CardSideText, BackType: "audio", AnswerText: "a",
		}}}, "back_type"},
		{"missing answer", CreateFlashCardInput{Name: "x", Cards: []CardInput{{
			QuestionType: models.CardSideText, BackType: models.CardSideText, AnswerText: "   ",
		}}}, "answer_text"},
		{"answer too long", CreateFlashCardInput{Name: "x", Cards: []CardInput{{
			QuestionType: models.CardSideText, BackType: models.CardSideText,
			AnswerText: strings.Repeat("a", 2001),
		}}}, "answer_text"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(game.ID, owner.ID, tc.in)
			require.ErrorIs(t, err, ErrValidation)
			require.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestCreateFlashCard_TooManyCards(t *testing.T) {
	_, _, svc, owner, game := newFlashCardEnv(t)

	cards := make([]CardInput, maxCards+1)
	for i := range cards {
		cards[i] = textCard("q", "a")
	}
	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{Name: "x", Cards: cards})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateFlashCard_ResolvesFileIndices(t *testing.T) {
	db, files, svc, owner, game := newFlashCardEnv(t)

	front := textCard("what animal?", "a cat")
	front.QuestionImageArrayIndex = intPtr(1)
	back := CardInput{
		QuestionType: models.CardSideImage,
		BackType:     models.CardSideImage,
		AnswerText:   "a dog",
	}
	back.QuestionImageArrayIndex = intPtr(0)
	back.BackImageArrayIndex = intPtr(5) // out of range resolves to null

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:      "Animals",
		Cards:     []CardInput{front, back},
		Thumbnail: &FileUpload{Filename: "cover.png", Content: strings.NewReader("png")},
		Files: []FileUpload{
			{Filename: "dog.jpg", Content: strings.NewReader("jpg")},
			{Filename: "cat.jpg", Content: strings.NewReader("jpg")},
		},
	})
	require.NoError(t, err)
	require.Len(t, files.uploads, 3) // thumbnail + 2 bulk files

	var flash models.FlashCard
	require.NoError(t, db.Preload("Items", func(d *gorm.DB) *gorm.DB {
		return d.Order("position ASC")
	}).Where("game_id = ?", game.ID).First(&flash).Error)

	prefix := fmt.Sprintf("game/flash-card/%d", game.ID)
	require.NotNil(t, flash.Thumbnail)
	require.True(t, strings.HasPrefix(*flash.Thumbnail, prefix))
	require.Equal(t, files.uploads[2], *flash.Items[0].QuestionImage)
	require.Equal(t, files.uploads[1], *flash.Items[1].QuestionImage)
	require.Nil(t, flash.Items[1].BackImage)
}

func TestCreateFlashCard_UploadFailureAbortsBeforePersist(t *testing.T) {
	db, files, svc, owner, game := newFlashCardEnv(t)
	files.failUpload = true

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:      "x",
		Cards:     []CardInput{textCard("q", "a")},
		Thumbnail: &FileUpload{Filename: "cover.png", Content: strings.NewReader("png")},
	})
	require.ErrorIs(t, err, ErrUpload)

	var count int64
	db.Model(&models.FlashCard{}).Count(&count)
	require.Zero(t, count)
}

func TestGetDetail_OwnerAndAdmin(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:  "Ordered",
		Cards: []CardInput{textCard("q0", "a0"), textCard("q1", "a1"), textCard("q2", "a2")},
	})
	require.NoError(t, err)

	flash, err := svc.GetDetail(game.ID, owner.ID, models.RoleCreator)
	require.NoError(t, err)
	require.Len(t, flash.Items, 3)
	for i, item := range flash.Items {
		require.Equal(t, i, item.Position)
		require.Equal(t, fmt.Sprintf("a%d", i), item.AnswerText)
	}

	admin := seedUser(t, db, "admin", models.RoleSuperAdmin)
	_, err = svc.GetDetail(game.ID, admin.ID, models.RoleSuperAdmin)
	require.NoError(t, err)

	stranger := seedUser(t, db, "stranger", models.RoleCreator)
	_, err = svc.GetDetail(game.ID, stranger.ID, models.RoleCreator)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestGetDetail_NotFound(t *testing.T) {
	_, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.GetDetail(game.ID, owner.ID, models.RoleCreator)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdate_ReplaceCards(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	ref, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:  "x",
		Cards: []CardInput{textCard("old", "old answer")},
	})
	require.NoError(t, err)

	_, err = svc.Update(game.ID, owner.ID, models.RoleCreator, UpdateFlashCardInput{
		Cards: []CardInput{textCard("new0", "n0"), textCard("new1", "n1")},
	})
	require.NoError(t, err)

	var items []models.FlashCardItem
	require.NoError(t, db.Where("flash_card_id = ?", ref.ID).Order("position ASC").Find(&items).Error)
	require.Len(t, items, 2)
	require.Equal(t, 0, items[0].Position)
	require.Equal(t, 1, items[1].Position)
	require.Equal(t, "new0", *items[0].QuestionText)

	var updated models.Game
	require.NoError(t, db.First(&updated, game.ID).Error)
	var sum GameSummary
	require.NoError(t, json.Unmarshal(updated.GameSummary, &sum))
	require.Len(t, sum.Items, 2)
}

func TestUpdate_WithoutCardsKeepsSummaryItems(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:  "before",
		Cards: []CardInput{textCard("q", "a")},
	})
	require.NoError(t, err)

	var before models.Game
	require.NoError(t, db.First(&before, game.ID).Error)

	_, err = svc.Update(game.ID, owner.ID, models.RoleCreator, UpdateFlashCardInput{
		Name: strPtr("after"),
	})
	require.NoError(t, err)

	var after models.Game
	require.NoError(t, db.First(&after, game.ID).Error)
	require.Equal(t, "after", after.Name)
	require.Equal(t, string(before.GameSummary), string(after.GameSummary))

	flash, err := svc.GetDetail(game.ID, owner.ID, models.RoleCreator)
	require.NoError(t, err)
	require.Equal(t, "after", flash.Title)
	require.Len(t, flash.Items, 1)
}

func TestUpdate_SettingsOnlyRefreshesSummarySettings(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:     "x",
		Settings: []byte(`{"shuffle":false}`),
		Cards:    []CardInput{textCard("q", "a")},
	})
	require.NoError(t, err)

	_, err = svc.Update(game.ID, owner.ID, models.RoleCreator, UpdateFlashCardInput{
		Settings: []byte(`{"shuffle":true,"lang":"en"}`),
	})
	require.NoError(t, err)

	var updated models.Game
	require.NoError(t, db.First(&updated, game.ID).Error)
	var sum GameSummary
	require.NoError(t, json.Unmarshal(updated.GameSummary, &sum))
	require.JSONEq(t, `{"shuffle":true,"lang":"en"}`, string(sum.Settings))
	require.Len(t, sum.Items, 1)
}

func TestUpdate_ThumbnailRetainedWhenNotResubmitted(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:      "x",
		Cards:     []CardInput{textCard("q", "a")},
		Thumbnail: &FileUpload{Filename: "cover.png", Content: strings.NewReader("png")},
	})
	require.NoError(t, err)

	var before models.FlashCard
	require.NoError(t, db.Where("game_id = ?", game.ID).First(&before).Error)
	require.NotNil(t, before.Thumbnail)

	_, err = svc.Update(game.ID, owner.ID, models.RoleCreator, UpdateFlashCardInput{
		Name: strPtr("renamed"),
	})
	require.NoError(t, err)

	var after models.FlashCard
	require.NoError(t, db.Where("game_id = ?", game.ID).First(&after).Error)
	require.Equal(t, *before.Thumbnail, *after.Thumbnail)
}

func TestUpdate_PublishFlagMirroredToGame(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:  "x",
		Cards: []CardInput{textCard("q", "a")},
	})
	require.NoError(t, err)

	_, err = svc.Update(game.ID, owner.ID, models.RoleCreator, UpdateFlashCardInput{
		IsPublish: boolPtr(true),
	})
	require.NoError(t, err)

	var flash models.FlashCard
	require.NoError(t, db.Where("game_id = ?", game.ID).First(&flash).Error)
	var updated models.Game
	require.NoError(t, db.First(&updated, game.ID).Error)
	require.True(t, flash.IsPublished)
	require.True(t, updated.IsPublished)
}

func TestUpdate_AdminBypassesOwnership(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:  "x",
		Cards: []CardInput{textCard("q", "a")},
	})
	require.NoError(t, err)

	admin := seedUser(t, db, "admin", models.RoleSuperAdmin)
	_, err = svc.Update(game.ID, admin.ID, models.RoleSuperAdmin, UpdateFlashCardInput{
		Name: strPtr("admin edit"),
	})
	require.NoError(t, err)

	stranger := seedUser(t, db, "stranger", models.RoleCreator)
	_, err = svc.Update(game.ID, stranger.ID, models.RoleCreator, UpdateFlashCardInput{
		Name: strPtr("nope"),
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestDelete_RemovesRowsAndThumbnail(t *testing.T) {
	db, files, svc, owner, game := newFlashCardEnv(t)

	ref, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:      "x",
		Cards:     []CardInput{textCard("q", "a"), textCard("q2", "a2")},
		Thumbnail: &FileUpload{Filename: "cover.png", Content: strings.NewReader("png")},
	})
	require.NoError(t, err)

	deleted, err := svc.Delete(game.ID, owner.ID, models.RoleCreator)
	require.NoError(t, err)
	require.Equal(t, ref.ID, deleted.ID)
	require.Len(t, files.removed, 1)

	var flashCount, itemCount, gameCount int64
	db.Model(&models.FlashCard{}).Count(&flashCount)
	db.Model(&models.FlashCardItem{}).Count(&itemCount)
	db.Model(&models.Game{}).Where("id = ?", game.ID).Count(&gameCount)
	require.Zero(t, flashCount)
	require.Zero(t, itemCount)
	require.EqualValues(t, 1, gameCount) // parent game is platform-owned
}

func TestIncrementPlay_CountsForDetailGameAndUser(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:                 "x",
		IsPublishImmediately: true,
		Cards:                []CardInput{textCard("q", "a")},
	})
	require.NoError(t, err)

	player := seedUser(t, db, "player", models.RoleCreator)
	require.NoError(t, svc.IncrementPlay(game.ID, &player.ID))
	require.NoError(t, svc.IncrementPlay(game.ID, &player.ID))

	var flash models.FlashCard
	require.NoError(t, db.Where("game_id = ?", game.ID).First(&flash).Error)
	var updated models.Game
	require.NoError(t, db.First(&updated, game.ID).Error)
	var playedUser models.User
	require.NoError(t, db.First(&playedUser, player.ID).Error)

	require.Equal(t, 2, flash.TotalPlayed)
	require.Equal(t, 2, updated.TotalPlayed)
	require.Equal(t, 2, playedUser.TotalGamePlayed)
}

func TestIncrementPlay_AnonymousSkipsUserCounter(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:                 "x",
		IsPublishImmediately: true,
		Cards:                []CardInput{textCard("q", "a")},
	})
	require.NoError(t, err)

	require.NoError(t, svc.IncrementPlay(game.ID, nil))

	var playedOwner models.User
	require.NoError(t, db.First(&playedOwner, owner.ID).Error)
	require.Zero(t, playedOwner.TotalGamePlayed)
}

func TestIncrementPlay_UnpublishedOrMissing(t *testing.T) {
	db, _, svc, owner, game := newFlashCardEnv(t)

	_, err := svc.Create(game.ID, owner.ID, CreateFlashCardInput{
		Name:  "x",
		Cards: []CardInput{textCard("q", "a")},
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.IncrementPlay(game.ID, &owner.ID), ErrNotFound)
	require.ErrorIs(t, svc.IncrementPlay(9999, &owner.ID), ErrNotFound)

	var flash models.FlashCard
	require.NoError(t, db.Where("game_id = ?", game.ID).First(&flash).Error)
	require.Zero(t, flash.TotalPlayed)
}

func TestNormalizeCards_PositionsMatchSubmissionOrder(t *testing.T) {
	for _, n := range []int{1, 7, maxCards} {
		cards := make([]CardInput, n)
		for i := range cards {
			cards[i] = textCard(fmt.Sprintf("q%d", i), "a")
		}
		items := normalizeCards(cards, nil)
		require.Len(t, items, n)
		for i, item := range items {
			require.Equal(t, i, item.Position)
			require.Equal(t, fmt.Sprintf("q%d", i), *item.QuestionText)
		}
	}
}

func TestValidateCards_TrimsText(t *testing.T) {
	cards := []CardInput{{
		QuestionType: models.CardSideText,
		QuestionText: strPtr("  spaced question  "),
		BackType:     models.CardSideText,
		AnswerText:   "  spaced answer  ",
	}}
	require.NoError(t, validateCards(cards))
	require.Equal(t, "spaced question", *cards[0].QuestionText)
	require.Equal(t, "spaced answer", cards[0].AnswerText)
}

func TestBuildSummary_NeverLeaksAnswers(t *testing.T) {
	items := normalizeCards([]CardInput{
		textCard("q", "the secret answer"),
		{QuestionType: models.CardSideImage, BackType: models.CardSideImage, AnswerText: "hidden", IsCorrect: true},
	}, []string{"game/flash-card/1/img.png"})

	raw, err := marshalSummary(buildSummary(nil, items))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "answer_text")
	require.NotContains(t, string(raw), "is_correct")
	require.NotContains(t, string(raw), "secret")
	require.Contains(t, string(raw), `"type":"flash-card"`)
}
