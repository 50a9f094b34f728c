package domain

import "time"

// SourceFile 描述一次枚举得到的源图片（只做 stat，不读内容）。
//
// 不变量：AbsPath 必须是 clean + absolute。
type SourceFile struct {
	AbsPath string
	ModTime time.Time
}
