package models

import (
	"context"
	"errors"
	"time"

	"github.com/flotadata/flota_backend/config"
	"github.com/flotadata/flota_backend/utils"
)

// User is an administrator or a driver. Drivers are the responsible party
// behind overflow debts: an expense a driver submits without box funds
// becomes a pending payment owed by that driver.
type User struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessId   string    `gorm:"index;not null" json:"business_id"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Username     string    `gorm:"size:100;not null" json:"username" binding:"required"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         UserRole  `gorm:"type:enum('Admin','Driver');default:'Driver';not null" json:"role"`
	Phone        string    `gorm:"size:30" json:"phone"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string   `json:"name" binding:"required"`
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Role     UserRole `json:"role" binding:"required"`
	Phone    string   `json:"phone"`
}

func (u User) GetBusinessId() string {
	return u.BusinessId
}

func (u User) GetId() int {
	return u.ID
}

func (input *NewUser) validate(ctx context.Context, businessId string, id int) error {
	if !input.Role.Valid() {
		return errors.New("invalid user role")
	}
	if err := utils.ValidateUnique[User](ctx, businessId, "username", input.Username, id); err != nil {
		return err
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	phone := ""
	if input.Phone != "" {
		phone, err = utils.FormatPhoneNumber(input.Phone)
		if err != nil {
			return nil, errors.New("invalid phone number")
		}
	}

	user := User{
		BusinessId:   businessId,
		Name:         input.Name,
		Username:     input.Username,
		PasswordHash: hash,
		Role:         input.Role,
		Phone:        phone,
		IsActive:     utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate verifies username/password and returns the user on success.
func Authenticate(ctx context.Context, username string, password string) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, errors.New("invalid credentials")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errors.New("user is inactive")
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, errors.New("invalid credentials")
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[User](ctx, businessId, id)
}

func GetUsers(ctx context.Context, role *UserRole, name *string) ([]*User, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*User
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if role != nil && *role != "" {
		dbCtx = dbCtx.Where("role = ?", role)
	}
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
