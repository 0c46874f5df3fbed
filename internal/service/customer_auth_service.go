package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/crm-next/internal/cache"
	"github.com/crm-next/internal/config"
	"github.com/crm-next/internal/constants"
	"github.com/crm-next/internal/logger"
	"github.com/crm-next/internal/models"
	"github.com/crm-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

// CustomerAuthService 客户认证服务
type CustomerAuthService struct {
	cfg          *config.Config
	customerRepo repository.CustomerRepository
}

// NewCustomerAuthService 创建客户认证服务
func NewCustomerAuthService(cfg *config.Config, customerRepo repository.CustomerRepository) *CustomerAuthService {
	return &CustomerAuthService{
		cfg:          cfg,
		customerRepo: customerRepo,
	}
}

// CustomerJWTClaims 客户 JWT 声明
type CustomerJWTClaims struct {
	CustomerID   uint   `json:"customer_id"`
	Email        string `json:"email"`
	TokenVersion uint64 `json:"token_version"`
	jwt.RegisteredClaims
}

// RegisterCustomerInput 客户注册参数
type RegisterCustomerInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UpdateProfileInput 客户自助修改资料参数，nil 表示不修改
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
	Company   *string
}

// GenerateCustomerJWT 生成客户 JWT
func (s *CustomerAuthService) GenerateCustomerJWT(customer *models.Customer, expireHours int) (string, time.Time, error) {
	if expireHours <= 0 {
		expireHours = resolveExpireHours(s.cfg.CustomerJWT.ExpireHours)
	}
	now := time.Now()
	expiresAt := now.Add(time.Duration(expireHours) * time.Hour)
	claims := CustomerJWTClaims{
		CustomerID:   customer.ID,
		Email:        customer.Email,
		TokenVersion: customer.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.CustomerJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseCustomerJWT 解析客户 JWT
func (s *CustomerAuthService) ParseCustomerJWT(tokenString string) (*CustomerJWTClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &CustomerJWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.CustomerJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*CustomerJWTClaims); ok && token.Valid && claims.CustomerID != 0 {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Register 客户注册
// 员工预先录入但尚未设置密码的客户可以用同一邮箱完成注册
func (s *CustomerAuthService) Register(input RegisterCustomerInput) (*models.Customer, string, time.Time, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, input.Password); err != nil {
		return nil, "", time.Time{}, err
	}

	exist, err := s.customerRepo.GetByEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if exist != nil && exist.CanLogin() {
		return nil, "", time.Time{}, ErrCustomerEmailTaken
	}

	hashedPassword, err := HashPassword(input.Password)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	customer := exist
	if customer == nil {
		firstName := strings.TrimSpace(input.FirstName)
		if firstName == "" {
			return nil, "", time.Time{}, ErrCustomerInvalid
		}
		customer = &models.Customer{
			FirstName:    firstName,
			LastName:     strings.TrimSpace(input.LastName),
			Email:        email,
			Phone:        strings.TrimSpace(input.Phone),
			PasswordHash: hashedPassword,
			Status:       constants.CustomerStatusActive,
			LastLoginAt:  &now,
		}
		if err := s.customerRepo.Create(customer); err != nil {
			return nil, "", time.Time{}, err
		}
	} else {
		if customer.Status != constants.CustomerStatusActive {
			return nil, "", time.Time{}, ErrAccountDisabled
		}
		customer.PasswordHash = hashedPassword
		customer.LastLoginAt = &now
		if err := s.customerRepo.UpdateCredentials(customer); err != nil {
			return nil, "", time.Time{}, err
		}
	}

	token, expiresAt, err := s.GenerateCustomerJWT(customer, 0)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetAuthState(context.Background(), cache.BuildCustomerAuthState(customer))
	logger.Infow("customer_register_success", "customer_id", customer.ID, "claimed", exist != nil)

	return customer, token, expiresAt, nil
}

// Login 客户登录
func (s *CustomerAuthService) Login(email, password string, rememberMe bool) (*models.Customer, string, time.Time, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	customer, err := s.customerRepo.GetByEmail(normalized)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if customer == nil || !customer.CanLogin() {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(customer.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if customer.Status != constants.CustomerStatusActive {
		return nil, "", time.Time{}, ErrAccountDisabled
	}

	expireHours := 0
	if rememberMe && s.cfg.CustomerJWT.RememberMeExpireHours > 0 {
		expireHours = s.cfg.CustomerJWT.RememberMeExpireHours
	}
	token, expiresAt, err := s.GenerateCustomerJWT(customer, expireHours)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	customer.LastLoginAt = &now
	if err := s.customerRepo.UpdateCredentials(customer); err != nil {
		return nil, "", time.Time{}, err
	}
	_ = cache.SetAuthState(context.Background(), cache.BuildCustomerAuthState(customer))

	return customer, token, expiresAt, nil
}

// GetCustomer 获取当前客户
func (s *CustomerAuthService) GetCustomer(customerID uint) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// ChangePassword 客户修改密码
func (s *CustomerAuthService) ChangePassword(customerID uint, oldPassword, newPassword string) error {
	customer, err := s.GetCustomer(customerID)
	if err != nil {
		return err
	}
	if err := VerifyPassword(customer.PasswordHash, oldPassword); err != nil {
		return ErrInvalidPassword
	}
	if err := validatePassword(s.cfg.Security.PasswordPolicy, newPassword); err != nil {
		return err
	}
	hashedPassword, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := time.Now()
	customer.PasswordHash = hashedPassword
	customer.TokenVersion++
	customer.TokenInvalidBefore = &now
	if err := s.customerRepo.UpdateCredentials(customer); err != nil {
		return err
	}
	_ = cache.SetAuthState(context.Background(), cache.BuildCustomerAuthState(customer))
	return nil
}

// UpdateProfile 客户自助修改资料，邮箱与状态只能由员工修改
func (s *CustomerAuthService) UpdateProfile(customerID uint, input UpdateProfileInput) (*models.Customer, error) {
	customer, err := s.GetCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if input.FirstName != nil {
		trimmed := strings.TrimSpace(*input.FirstName)
		if trimmed == "" {
			return nil, ErrCustomerInvalid
		}
		customer.FirstName = trimmed
	}
	if input.LastName != nil {
		customer.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		customer.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		customer.Address = strings.TrimSpace(*input.Address)
	}
	if input.Company != nil {
		customer.Company = strings.TrimSpace(*input.Company)
	}
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", ErrInvalidEmail
	}
	return normalized, nil
}
