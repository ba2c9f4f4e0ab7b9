package server

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"tradeconnect/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostEndpoint(t *testing.T) {
	t.Parallel()
	srv, app, db := newTestServer(t)
	seedCategory(t, db, "electronics")
	user, token := signupUser(t, srv, "seller@example.com", models.RoleUser)

	t.Run("requires auth", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/posts/", "", map[string]any{
			"title": "Bike",
		})
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("creates draft", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/posts/", token, map[string]any{
			"title":       "Mountain bike",
			"description": "Barely used",
			"content":     "Full suspension, size L.",
			"category":    "electronics",
			"price":       450.0,
		})
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.EqualValues(t, user.ID, body["author_id"])
		assert.Equal(t, false, body["is_published"])
		assert.Nil(t, body["published_at"])
		assert.Equal(t, "supply", body["post_type"])
		assert.Equal(t, "USD", body["currency"])
	})

	t.Run("publish stamps published_at", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/posts/", token, map[string]any{
			"title":       "Phone",
			"description": "Good condition",
			"content":     "128GB, unlocked.",
			"category":    "electronics",
			"publish":     true,
		})
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["is_published"])
		assert.NotNil(t, body["published_at"])
	})

	t.Run("missing title rejected", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/posts/", token, map[string]any{
			"description": "d",
			"content":     "c",
			"category":    "electronics",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("unknown category rejected", func(t *testing.T) {
		resp := doJSON(t, app, "POST", "/api/posts/", token, map[string]any{
			"title":       "Sofa",
			"description": "d",
			"content":     "c",
			"category":    "no-such-category",
		})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestGetPostTracksViews(t *testing.T) {
	t.Parallel()
	srv, app, db := newTestServer(t)
	seedCategory(t, db, "electronics")
	user, _ := signupUser(t, srv, "author@example.com", models.RoleUser)

	post := models.Post{
		AuthorID:    user.ID,
		Title:       "Camera",
		Description: "d",
		Content:     "c",
		Category:    "electronics",
		IsPublished: true,
	}
	require.NoError(t, db.Create(&post).Error)
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	// First anonymous view counts.
	resp := doJSON(t, app, "GET", path, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	got := body["post"].(map[string]any)
	assert.EqualValues(t, 1, got["view_count"])

	// Same viewer inside the dedup window is suppressed.
	resp = doJSON(t, app, "GET", path, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	got = body["post"].(map[string]any)
	assert.EqualValues(t, 1, got["view_count"])

	var rows int64
	require.NoError(t, db.Model(&models.PostView{}).Where("post_id = ?", post.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestGetPostIncludesInteractions(t *testing.T) {
	t.Parallel()
	srv, app, db := newTestServer(t)
	seedCategory(t, db, "electronics")
	author, _ := signupUser(t, srv, "owner@example.com", models.RoleUser)
	viewer, token := signupUser(t, srv, "viewer@example.com", models.RoleUser)

	post := models.Post{
		AuthorID:    author.ID,
		Title:       "Desk",
		Description: "d",
		Content:     "c",
		Category:    "electronics",
		IsPublished: true,
	}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: viewer.ID}).Error)

	resp := doJSON(t, app, "GET", fmt.Sprintf("/api/posts/%d", post.ID), token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	interactions, ok := body["interactions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, interactions["liked"])
	assert.Equal(t, false, interactions["favorited"])
}

func TestUpdatePostEndpoint(t *testing.T) {
	t.Parallel()
	srv, app, db := newTestServer(t)
	seedCategory(t, db, "electronics")
	owner, ownerToken := signupUser(t, srv, "owner@example.com", models.RoleUser)
	_, strangerToken := signupUser(t, srv, "stranger@example.com", models.RoleUser)
	_, adminToken := signupUser(t, srv, "admin@example.com", models.RoleAdmin)

	post := models.Post{
		AuthorID:    owner.ID,
		Title:       "Chair",
		Description: "d",
		Content:     "c",
		Category:    "electronics",
	}
	require.NoError(t, db.Create(&post).Error)
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	t.Run("stranger forbidden", func(t *testing.T) {
		resp := doJSON(t, app, "PUT", path, strangerToken, map[string]any{
			"title": "Hijacked",
		})
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("owner updates", func(t *testing.T) {
		resp := doJSON(t, app, "PUT", path, ownerToken, map[string]any{
			"title":   "Office chair",
			"publish": true,
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "Office chair", body["title"])
		assert.Equal(t, true, body["is_published"])
		assert.NotNil(t, body["published_at"])
	})

	t.Run("admin may edit", func(t *testing.T) {
		resp := doJSON(t, app, "PUT", path, adminToken, map[string]any{
			"price": 25.0,
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	})

	t.Run("unpublish keeps published_at", func(t *testing.T) {
		resp := doJSON(t, app, "PUT", path, ownerToken, map[string]any{
			"publish": false,
		})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, false, body["is_published"])
		assert.NotNil(t, body["published_at"])
	})
}

func TestDeletePostEndpoint(t *testing.T) {
	t.Parallel()
	srv, app, db := newTestServer(t)
	seedCategory(t, db, "electronics")
	owner, ownerToken := signupUser(t, srv, "owner@example.com", models.RoleUser)
	liker, strangerToken := signupUser(t, srv, "liker@example.com", models.RoleUser)

	post := models.Post{
		AuthorID:    owner.ID,
		Title:       "Lamp",
		Description: "d",
		Content:     "c",
		Category:    "electronics",
		IsPublished: true,
		LikeCount:   1,
	}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Create(&models.Like{PostID: post.ID, UserID: liker.ID}).Error)
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	resp := doJSON(t, app, "DELETE", path, strangerToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, "DELETE", path, ownerToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	var posts, likes int64
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes).Error)
	assert.Zero(t, posts)
	assert.Zero(t, likes)
}

func TestListPostsOnlyPublished(t *testing.T) {
	t.Parallel()
	srv, app, db := newTestServer(t)
	seedCategory(t, db, "electronics")
	user, _ := signupUser(t, srv, "lister@example.com", models.RoleUser)

	for i, published := range []bool{true, true, false} {
		post := models.Post{
			AuthorID:    user.ID,
			Title:       fmt.Sprintf("Item %d", i),
			Description: "d",
			Content:     "c",
			Category:    "electronics",
			IsPublished: published,
		}
		require.NoError(t, db.Create(&post).Error)
	}

	resp := doJSON(t, app, "GET", "/api/posts/", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	posts, ok := body["posts"].([]any)
	require.True(t, ok)
	assert.Len(t, posts, 2)
}

func TestUploadsUnconfigured(t *testing.T) {
	t.Parallel()
	srv, app, _ := newTestServer(t)
	_, token := signupUser(t, srv, "uploader@example.com", models.RoleUser)

	resp := doJSON(t, app, "POST", "/api/uploads", token, map[string]any{
		"filename":     "photo.jpg",
		"content_type": "image/jpeg",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestInvalidPostID(t *testing.T) {
	t.Parallel()
	_, app, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/posts/banana", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
