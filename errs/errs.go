// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errs 定義全專案共用的錯誤型別。
//
// 所有錯誤都是同步、可重現的：同樣的輸入永遠得到同樣的錯誤，
// 因此本包不提供任何 retry / temporary 的語意。
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLevel : Error 分級，使最上層理解問題嚴重程度
type ErrLevel uint8

const (
	None  ErrLevel = iota
	Fatal          // 系統或設定錯誤，狀態不可信
	Warn           // 呼叫端輸入錯誤，修正輸入後可再呼叫
	Log            // 僅需紀錄
)

var errLvMap = map[ErrLevel]string{
	None:  "",
	Fatal: "fatal",
	Warn:  "warn",
	Log:   "log",
}

func (l ErrLevel) String() string {
	if str, ok := errLvMap[l]; ok {
		return str
	}
	return ""
}

// E 是統一的錯誤型別。
//
//   - Op: 發生錯誤的操作（例如 "sampler.Likelihood"），可為空。
//   - Message: 主訊息。
//   - Extra: 呼叫端追加的上下文（例如出錯的 item）。
//   - Cause: 下層錯誤，errors.Is / errors.As 會沿著它展開。
//   - ErrLv: 嚴重程度。
type E struct {
	Op      string
	Message string
	Extra   string
	Cause   error
	ErrLv   ErrLevel
}

// Error 實作 error 介面。
//
// 格式: "[op: ]message[ | extra: ...][: cause]"
func (e *E) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Extra != "" {
		b.WriteString(" | extra: ")
		b.WriteString(e.Extra)
	}
	if e.Cause != nil {
		// 包裝裸哨兵時訊息已提升到本層，不重複輸出
		if c := e.Cause.Error(); c != "" && c != e.Message {
			b.WriteString(": ")
			b.WriteString(c)
		}
	}
	return b.String()
}

// Unwrap 讓 errors.Is / errors.As 能夠向下展開。
func (e *E) Unwrap() error { return e.Cause }

// New 依錯誤等級與訊息建立錯誤
func New(errLv ErrLevel, msg string) *E {
	return &E{Message: msg, ErrLv: errLv}
}

func NewFatal(msg string) *E {
	return &E{Message: msg, ErrLv: Fatal}
}

func NewWarn(msg string) *E {
	return &E{Message: msg, ErrLv: Warn}
}

func NewLog(msg string) *E {
	return &E{Message: msg, ErrLv: Log}
}

func Fatalf(format string, a ...any) *E {
	return NewFatal(fmt.Sprintf(format, a...))
}

func Warnf(format string, a ...any) *E {
	return NewWarn(fmt.Sprintf(format, a...))
}

func Logf(format string, a ...any) *E {
	return NewLog(fmt.Sprintf(format, a...))
}

// Wrap 以 op 包裝 cause。
//
// ErrLevel 規則：
//   - 若 cause 鏈上有 *E，沿用最外層 *E 的 ErrLv（保持原本嚴重度）。
//   - 否則（標準庫或三方依賴錯誤）一律視為 Fatal。
//
// 包裝後 errors.Is(err, cause) 仍成立，所以可以直接 Wrap 一個哨兵錯誤：
//
//	return errs.Wrap(ErrItemNotFound, "sampler.Likelihood")
func Wrap(cause error, op string) *E {
	return &E{Op: op, Message: messageOf(cause), Cause: cause, ErrLv: Level(cause)}
}

// WrapWithExtra 與 Wrap 相同，但附加上下文字串。
func WrapWithExtra(cause error, op string, extra string) *E {
	e := Wrap(cause, op)
	e.Extra = extra
	return e
}

// Level 回傳 err 鏈上第一個 *E 的等級；err 為 nil 回傳 None，非 *E 錯誤回傳 Fatal。
func Level(err error) ErrLevel {
	if err == nil {
		return None
	}
	if e, ok := AsErr(err); ok {
		return e.ErrLv
	}
	return Fatal
}

func AsErr(err error) (*E, bool) {
	var e *E
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// messageOf 取 cause 的主訊息作為包裝層的訊息，避免 Error() 重複輸出。
func messageOf(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	if e, ok := cause.(*E); ok && e.Op == "" && e.Extra == "" && e.Cause == nil {
		return e.Message
	}
	return "failed"
}
