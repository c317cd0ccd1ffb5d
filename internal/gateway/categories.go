package gateway

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/tidwall/gjson"
)

// AdaptCategory turns a taxonomy token such as "home-decoration" into its
// display object {slug: token, name: "Home decoration", url: "/products/category/<token>"}.
func AdaptCategory(token string) model.Category {
	name := token
	if r, size := utf8.DecodeRuneInString(token); r != utf8.RuneError {
		name = string(unicode.ToUpper(r)) + strings.ReplaceAll(token[size:], "-", " ")
	}
	return model.Category{
		Slug: token,
		Name: name,
		URL:  "/products/category/" + token,
	}
}

// AdaptCategories adapts the upstream category payload.
// The payload is an array of tokens; newer upstream versions send objects
// instead, which are reduced to their slug so the result shape is the same.
func AdaptCategories(payload []byte) ([]model.Category, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("categories payload is not valid JSON")
	}
	root := gjson.ParseBytes(payload)
	if !root.IsArray() {
		return nil, fmt.Errorf("categories payload is not an array")
	}

	cats := []model.Category{}
	root.ForEach(func(_, entry gjson.Result) bool {
		var token string
		switch {
		case entry.Type == gjson.String:
			token = entry.String()
		case entry.IsObject():
			token = entry.Get("slug").String()
		}
		if token != "" {
			cats = append(cats, AdaptCategory(token))
		}
		return true
	})
	return cats, nil
}
