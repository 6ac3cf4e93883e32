package directory

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is a top-level entry of the two-level skill taxonomy. Slug is
// unique and lowercase.
type Category struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title          string               `bson:"title" json:"title"`
	Slug           string               `bson:"slug" json:"slug"`
	SubCategoryIDs []primitive.ObjectID `bson:"subCategories,omitempty" json:"subCategories,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt      time.Time            `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// SubCategory is a second-level taxonomy entry referencing its parent.
type SubCategory struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title            string             `bson:"title" json:"title"`
	Slug             string             `bson:"slug" json:"slug"`
	ParentCategoryID primitive.ObjectID `bson:"parentCategory,omitempty" json:"parentCategory,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt        time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Brand is a device brand associated with a category, used by the agent for
// answer options and reserved for brand-based match filtering.
type Brand struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CategoryID  primitive.ObjectID `bson:"category,omitempty" json:"category,omitempty"`
}

// RateCard holds a geek's pricing info as stored, opaque to matching.
type RateCard struct {
	Currency   string  `bson:"currency,omitempty" json:"currency,omitempty"`
	HourlyRate float64 `bson:"hourlyRate,omitempty" json:"hourlyRate,omitempty"`
	VisitFee   float64 `bson:"visitFee,omitempty" json:"visitFee,omitempty"`
}

// Review is a customer review attached to a geek profile.
type Review struct {
	Rating  float64 `bson:"rating" json:"rating"`
	Comment string  `bson:"comment,omitempty" json:"comment,omitempty"`
}

// Geek is a service-provider profile. PrimarySkillID and SecondarySkillIDs
// are weak references into the categories/subcategories collections, resolved
// by lookup at query time.
type Geek struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	FullName          string               `bson:"fullName" json:"fullName"`
	Type              string               `bson:"type,omitempty" json:"type,omitempty"`
	PrimarySkillID    primitive.ObjectID   `bson:"primarySkill,omitempty" json:"primarySkill,omitempty"`
	SecondarySkillIDs []primitive.ObjectID `bson:"secondarySkills,omitempty" json:"secondarySkills,omitempty"`
	Email             string               `bson:"email,omitempty" json:"email,omitempty"`
	Phone             string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Availability      string               `bson:"availability,omitempty" json:"availability,omitempty"`
	Services          []string             `bson:"services,omitempty" json:"services,omitempty"`
	RateCard          *RateCard            `bson:"rateCard,omitempty" json:"rateCard,omitempty"`
	Reviews           []Review             `bson:"reviews,omitempty" json:"reviews,omitempty"`
}

// GeekMatch is a geek profile with its skill references denormalized into
// human-readable names for presentation.
type GeekMatch struct {
	Geek
	PrimarySkillName    string   `json:"primarySkillName,omitempty"`
	SecondarySkillNames []string `json:"secondarySkillNames,omitempty"`
}
