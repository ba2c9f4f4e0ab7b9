// Package seed provides database seeding utilities for development and demos.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"tradeconnect/internal/models"
	"tradeconnect/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Run populates the database with demo marketplace data: categories, users
// with profiles, published and draft listings, and interaction rows whose
// counts match the cached counters on each listing.
func Run(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 20
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = 60
	}

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return fmt.Errorf("failed to clear data: %w", err)
		}
	}

	if err := Categories(db); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("✓ %d demo users created", len(users))

	posts, err := createPosts(db, users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("✓ %d listings created", len(posts))

	if err := createInteractions(db, users, posts); err != nil {
		return fmt.Errorf("failed to create interactions: %w", err)
	}
	log.Println("✓ interactions created")

	log.Println("🎉 Database seeding completed successfully!")
	return nil
}

// Categories ensures the built-in browse categories exist. Already present
// slugs are left untouched.
func Categories(db *gorm.DB) error {
	for _, cat := range service.DefaultCategories() {
		var existing models.Category
		err := db.Where(models.Category{Slug: cat.Slug}).
			Attrs(cat).
			FirstOrCreate(&existing).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	sql := `TRUNCATE TABLE post_views, favorites, likes, comments, post_images, posts, profiles, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createUsers(db *gorm.DB, count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	// A couple of fixed accounts so the demo login is predictable.
	if count >= 2 {
		base := []struct {
			name, email string
		}{
			{"Demo Seller", "seller@example.com"},
			{"Demo Buyer", "buyer@example.com"},
		}
		for _, b := range base {
			user := models.User{
				Name:     b.name,
				Email:    b.email,
				Password: string(hashedPassword),
				Role:     models.RoleUser,
			}
			if err := db.Create(&user).Error; err == nil {
				if err := createProfile(db, &user); err != nil {
					return nil, err
				}
				users = append(users, user)
			}
		}
	}

	for i := len(users); i < count; i++ {
		name := gofakeit.Name()
		user := models.User{
			Name:     name,
			Email:    strings.ToLower(fmt.Sprintf("%s%d@example.com", gofakeit.Username(), i)),
			Password: string(hashedPassword),
			Role:     models.RoleUser,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Printf("Failed to create user %s: %v", user.Email, err)
			continue
		}
		if err := createProfile(db, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

func createProfile(db *gorm.DB, user *models.User) error {
	profile := models.Profile{
		UserID:      user.ID,
		DisplayName: user.Name,
		Email:       user.Email,
		Role:        user.Role,
		Location:    gofakeit.City(),
	}
	return db.Create(&profile).Error
}

func createPosts(db *gorm.DB, users []models.User, count int) ([]models.Post, error) {
	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	categories := service.DefaultCategories()
	conditions := []string{
		models.ConditionNew, models.ConditionLikeNew, models.ConditionGood,
		models.ConditionFair, models.ConditionPoor,
	}
	postTypes := []string{
		models.PostTypeSupply, models.PostTypeSupply, models.PostTypeSupply,
		models.PostTypeDemand, models.PostTypeService, models.PostTypeExchange,
	}

	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[r.Intn(len(users))]
		category := categories[r.Intn(len(categories))]
		product := gofakeit.Product()

		published := r.Float32() < 0.85
		post := models.Post{
			AuthorID:    author.ID,
			Title:       product.Name,
			Description: gofakeit.Sentence(12),
			Content:     gofakeit.Paragraph(2, 4, 12, " "),
			Category:    category.Slug,
			Tags:        models.StringList(product.Categories),
			Price:       float64(r.Intn(95000)+500) / 100,
			Currency:    "USD",
			PriceType:   models.PriceTypeFixed,
			Condition:   conditions[r.Intn(len(conditions))],
			Quantity:    r.Intn(3) + 1,
			PostType:    postTypes[r.Intn(len(postTypes))],
			Status:      models.PostStatusActive,
			City:        gofakeit.City(),
			Country:     gofakeit.CountryAbr(),
			IsPublished: published,
			IsFeatured:  published && r.Float32() < 0.1,
		}
		if r.Float32() < 0.3 {
			post.IsNegotiable = true
			post.PriceType = models.PriceTypeNegotiable
		}
		if published {
			at := time.Now().Add(-time.Duration(r.Intn(720)) * time.Hour)
			post.PublishedAt = &at
		}

		if err := db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// createInteractions sprinkles likes, favorites, comments and views across
// the published listings. Rows are written first and the cached counters
// derived from them afterwards, so the seeded data satisfies the same
// counter == row count property the API maintains.
func createInteractions(db *gorm.DB, users []models.User, posts []models.Post) error {
	//nolint:gosec // Weak random number generator is fine for seeding
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, post := range posts {
		if !post.IsPublished {
			continue
		}

		for _, user := range users {
			if r.Float32() < 0.2 {
				if err := db.Create(&models.Like{PostID: post.ID, UserID: user.ID}).Error; err != nil {
					return err
				}
			}
			if r.Float32() < 0.1 {
				if err := db.Create(&models.Favorite{PostID: post.ID, UserID: user.ID}).Error; err != nil {
					return err
				}
			}
			if r.Float32() < 0.3 {
				uid := user.ID
				view := models.PostView{
					PostID:    post.ID,
					UserID:    &uid,
					IPAddress: gofakeit.IPv4Address(),
					UserAgent: gofakeit.UserAgent(),
				}
				if err := db.Create(&view).Error; err != nil {
					return err
				}
			}
		}

		numComments := r.Intn(5)
		var topLevel []uint
		for i := 0; i < numComments; i++ {
			author := users[r.Intn(len(users))]
			comment := models.Comment{
				PostID:   post.ID,
				AuthorID: author.ID,
				Content:  gofakeit.Sentence(r.Intn(15) + 3),
			}
			if len(topLevel) > 0 && r.Float32() < 0.4 {
				parent := topLevel[r.Intn(len(topLevel))]
				comment.ParentID = &parent
			}
			if err := db.Create(&comment).Error; err != nil {
				return err
			}
			if comment.ParentID == nil {
				topLevel = append(topLevel, comment.ID)
			}
		}

		if err := syncCounters(db, post.ID); err != nil {
			return err
		}
	}

	return nil
}

func syncCounters(db *gorm.DB, postID uint) error {
	var likes, favorites, comments, views int64
	if err := db.Model(&models.Like{}).Where("post_id = ?", postID).Count(&likes).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Favorite{}).Where("post_id = ?", postID).Count(&favorites).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Comment{}).Where("post_id = ? AND is_deleted = ?", postID, false).Count(&comments).Error; err != nil {
		return err
	}
	if err := db.Model(&models.PostView{}).Where("post_id = ?", postID).Count(&views).Error; err != nil {
		return err
	}
	return db.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]any{
		"like_count":     likes,
		"favorite_count": favorites,
		"comment_count":  comments,
		"view_count":     views,
	}).Error
}
