// Package migrations 内嵌 SQLite 表结构迁移文件
package migrations

import "embed"

// FS 按文件名顺序执行的迁移
//
//go:embed *.sql
var FS embed.FS
