package services

import (
	"exachat_go_backend/internal/database"
	"exachat_go_backend/internal/models"
)

func CreateOrUpdateUser(auth0ID, email, name, nickname, tier string) (*models.User, error) {
	if tier != models.TierGuest && tier != models.TierRegular {
		tier = models.TierRegular
	}

	user := models.User{
		Auth0ID:  auth0ID,
		Email:    email,
		Name:     name,
		Nickname: nickname,
		Tier:     tier,
	}
	result := database.DB.Where(models.User{Auth0ID: auth0ID}).FirstOrCreate(&user)

	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func GetUserByAuth0ID(auth0ID string) (*models.User, error) {
	var user models.User
	result := database.DB.Where("auth0_id = ?", auth0ID).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}
