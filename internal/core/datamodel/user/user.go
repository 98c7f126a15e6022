package user

import "time"

type User struct {
	UserID       string     `gorm:"column:user_id;primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Email        string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash"`
	Role         string     `gorm:"column:role;not null"`
	Status       string     `gorm:"column:status;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

type Employee struct {
	EmployeeID     string     `gorm:"column:employee_id;primaryKey"`
	UserID         string     `gorm:"column:user_id;index;not null"`
	Department     string     `gorm:"column:department"`
	ManagerID      *string    `gorm:"column:manager_id"`
	JoiningDate    *time.Time `gorm:"column:joining_date;type:date"`
	EmploymentType string     `gorm:"column:employment_type"`
	WorkLocation   string     `gorm:"column:work_location"`
	Timezone       string     `gorm:"column:timezone"`
	Birthday       *time.Time `gorm:"column:birthday;type:date"`
}

func (Employee) TableName() string {
	return "employees"
}
