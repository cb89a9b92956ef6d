package model

// PointTransaction 积分流水，只追加不修改。
// 每一次余额变动（解锁扣减、批改奖励）都会在同一事务内落一条流水，
// 余额异常时可以沿流水回放定位。
type PointTransaction struct {
	BaseModel
	UserID       uint   `gorm:"not null;index" json:"userId"`
	Amount       int    `gorm:"not null" json:"amount"` // 负数为扣减
	Kind         string `gorm:"size:50;not null" json:"kind"`
	Reference    string `gorm:"size:100" json:"reference"`
	BalanceAfter int    `gorm:"not null" json:"balanceAfter"`
}
