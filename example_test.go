package sso_test

import (
	"fmt"

	"github.com/rawbytedev/sso"
)

func ExampleString() {
	s := sso.New()
	s.PushStr("hello")
	fmt.Println(s.String(), s.IsShort())

	s.PushStr(", a string too long to stay inline")
	fmt.Println(s.IsLong(), s.Len())

	s.Truncate(5)
	s.ShrinkToFit()
	fmt.Println(s.String(), s.IsShort())
	// Output:
	// hello true
	// true 39
	// hello true
}

func ExampleString_Drain() {
	s := sso.From("abcdef")
	for r := range s.Drain(1, 3).All() {
		fmt.Printf("%c ", r)
	}
	fmt.Println(s.String())
	// Output: b c adef
}

func ExampleStr() {
	v := sso.StrOf("日本語")
	for i, r := range v.CharIndices() {
		fmt.Println(i, string(r))
	}
	fmt.Println(v.Len(), v.Width())
	// Output:
	// 0 日
	// 3 本
	// 6 語
	// 9 6
}
