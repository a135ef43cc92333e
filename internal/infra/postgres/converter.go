package postgres

import (
	"github.com/samber/mo"
)

// optionFromPtr は NULL 許容カラムのスキャン結果を mo.Option に変換する。
func optionFromPtr[T any](p *T) mo.Option[T] {
	if p == nil {
		return mo.None[T]()
	}
	return mo.Some(*p)
}

// ptrFromOption は mo.Option を NULL 許容カラムのバインド値に変換する。
func ptrFromOption[T any](o mo.Option[T]) *T {
	v, ok := o.Get()
	if !ok {
		return nil
	}
	return &v
}
