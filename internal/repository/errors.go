package repository

import "errors"

// 「対象が見つからない」を層をまたいで統一する
var ErrNotFound = errors.New("not found")
