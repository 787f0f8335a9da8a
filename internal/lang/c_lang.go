package lang

func init() {
	Register(&LanguageSpec{
		Language:       C,
		Role:           Implementation,
		FileExtensions: []string{".c"},
	})
	Register(&LanguageSpec{
		Language:           C,
		Role:               Header,
		FileExtensions:     []string{".h"},
		SkipFunctionBodies: true,
	})
}
