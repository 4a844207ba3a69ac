package gormstore

import (
	"gorm.io/datatypes"
)

// accountModel is one row per address. Lamports are stored as the int64 bit
// pattern of the u64 value since SQLite integers are signed.
type accountModel struct {
	Address       string         `gorm:"column:address;primaryKey"`
	Owner         string         `gorm:"column:owner;index"`
	Lamports      int64          `gorm:"column:lamports"`
	Data          []byte         `gorm:"column:data"`
	Authority     string         `gorm:"column:authority;index"`
	ViewJSON      datatypes.JSON `gorm:"column:view_json;type:TEXT"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (accountModel) TableName() string { return "accounts" }

type processedSignatureModel struct {
	Signature     string `gorm:"column:signature;primaryKey"`
	CreatedAtUnix int64  `gorm:"column:created_at"`
}

func (processedSignatureModel) TableName() string { return "processed_signatures" }
