package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cnm4us/aws-sub000/internal/database"
	"github.com/cnm4us/aws-sub000/internal/models"
	"github.com/cnm4us/aws-sub000/internal/permission"
	"github.com/cnm4us/aws-sub000/internal/role"
	"github.com/cnm4us/aws-sub000/internal/server"
	"github.com/cnm4us/aws-sub000/internal/user"
	"github.com/cnm4us/aws-sub000/internal/utils"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestDB opens a private in-memory sqlite database with every table migrated
// and the default roles seeded.
func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "Failed to create test database")

	// every pooled connection would otherwise get its own empty :memory: database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "Failed to migrate test database")
	require.NoError(t, role.SeedDefaultRoles(db), "Failed to seed roles")

	return db
}

// SetupTestApp returns a fully wired app over a fresh test database.
func SetupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	db := TestDB(t)
	app := server.New(server.NewDeps(db, nil))
	return app, db
}

func CreateTestUser(t *testing.T, db *gorm.DB, email, password string) *models.User {
	u, err := user.CreateUser(db, "Test User", email, password)
	require.NoError(t, err, "Failed to create test user")
	return u
}

func GrantGlobalRole(t *testing.T, db *gorm.DB, userID uint, roleName string) {
	require.NoError(t, role.AssignGlobalRole(db, userID, roleName), "Failed to grant role %s", roleName)
}

func GrantSpaceRole(t *testing.T, db *gorm.DB, userID, spaceID uint, roleName string) {
	require.NoError(t, role.AssignSpaceRole(db, userID, spaceID, roleName), "Failed to grant space role %s", roleName)
}

// CreateSpace inserts a space. ownerID 0 leaves the owner unset; settings may be empty.
func CreateSpace(t *testing.T, db *gorm.DB, spaceType models.SpaceType, ownerID uint, settings string) *models.Space {
	space := &models.Space{Type: spaceType, Name: string(spaceType) + " space"}
	if ownerID != 0 {
		space.OwnerUserID = &ownerID
	}
	if settings != "" {
		space.Settings = datatypes.JSON(settings)
	}
	require.NoError(t, db.Create(space).Error, "Failed to create space")
	return space
}

func CreateUpload(t *testing.T, db *gorm.DB, ownerID, originSpaceID uint) *models.Upload {
	upload := &models.Upload{OwnerUserID: ownerID, Title: "clip"}
	if originSpaceID != 0 {
		upload.OriginSpaceID = &originSpaceID
	}
	require.NoError(t, db.Create(upload).Error, "Failed to create upload")
	return upload
}

func CreateProduction(t *testing.T, db *gorm.DB, uploadID uint, status models.ProductionStatus, completedAt *time.Time) *models.Production {
	production := &models.Production{UploadID: uploadID, Status: status, CompletedAt: completedAt}
	require.NoError(t, db.Create(production).Error, "Failed to create production")
	return production
}

func SetSiteSettings(t *testing.T, db *gorm.DB, requireGroupReview, requireChannelReview bool) {
	settings := models.SiteSettings{
		ID:                   1,
		RequireGroupReview:   requireGroupReview,
		RequireChannelReview: requireChannelReview,
	}
	require.NoError(t, db.Save(&settings).Error, "Failed to save site settings")
}

// SuspendPosting inserts an open-ended posting suspension that started an hour ago.
// spaceID 0 makes it site-wide.
func SuspendPosting(t *testing.T, db *gorm.DB, userID, spaceID uint) *models.Suspension {
	row := &models.Suspension{
		UserID:     userID,
		Kind:       models.SuspensionPosting,
		TargetType: models.SuspensionTargetSite,
		StartsAt:   time.Now().UTC().Add(-time.Hour),
	}
	if spaceID != 0 {
		row.TargetType = models.SuspensionTargetSpace
		row.TargetID = &spaceID
	}
	require.NoError(t, db.Create(row).Error, "Failed to create suspension")
	return row
}

func GetAuthToken(t *testing.T, userID uint) string {
	token, err := utils.GenerateJWT(userID)
	assert.NoError(t, err, "Failed to generate test token")
	return token
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(resp.Body).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
	Meta    *Meta        `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Total int64 `json:"total"`
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	if assert.NotNil(t, result.Error, "Expected error object") {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}

// NewAuthorizer builds the store-backed authorizer over db.
func NewAuthorizer(db *gorm.DB) *permission.Authorizer {
	return server.NewDeps(db, nil).Authorizer
}
