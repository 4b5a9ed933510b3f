package database

func GetUserByEmail(email string) (*User, error) {
	var user User
	if err := DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUserByID(id uint) (*User, error) {
	var user User
	if err := DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func CreateUser(user *User) error {
	return DB.Create(user).Error
}

func DeleteUser(id uint) error {
	if err := DB.Where("user_id = ?", id).Delete(&TeamMember{}).Error; err != nil {
		return err
	}
	return DB.Delete(&User{}, id).Error
}

func UpdateUserPassword(id uint, hash string) error {
	return DB.Model(&User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func ListUsers() ([]User, error) {
	var users []User
	if err := DB.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func UserCount() (int64, error) {
	var count int64
	err := DB.Model(&User{}).Count(&count).Error
	return count, err
}

func GetFirstAdmin() (*User, error) {
	var user User
	if err := DB.Where("role = ?", "admin").Order("id").First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetTeamByID loads a team with its subscription preloaded.
func GetTeamByID(id uint) (*Team, error) {
	var team Team
	if err := DB.Preload("Subscription").First(&team, id).Error; err != nil {
		return nil, err
	}
	return &team, nil
}

func GetProjectByID(id uint) (*Project, error) {
	var project Project
	if err := DB.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func IsUserMemberOfTeam(userID, teamID uint) bool {
	var count int64
	DB.Model(&TeamMember{}).Where("user_id = ? AND team_id = ?", userID, teamID).Count(&count)
	return count > 0
}

func GetTeamMemberRole(userID, teamID uint) (string, bool) {
	var member TeamMember
	if err := DB.Where("user_id = ? AND team_id = ?", userID, teamID).First(&member).Error; err != nil {
		return "", false
	}
	return member.Role, true
}

// ListTeamsForUser returns the teams the user belongs to, subscriptions
// preloaded.
func ListTeamsForUser(userID uint) ([]Team, error) {
	var teams []Team
	err := DB.Preload("Subscription").
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.id").
		Find(&teams).Error
	return teams, err
}
