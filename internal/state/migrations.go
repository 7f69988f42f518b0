package state

// migrateV0toV1 renames the legacy ingredient pack fields (packAmount,
// packUnit, packPrice, shelfLife) to their current names. Documents written
// before the schema field existed report version 0 and start here.
func migrateV0toV1(doc map[string]any) map[string]any {
	ingredients, ok := doc["ingredients"].([]any)
	if !ok {
		return doc
	}
	for _, raw := range ingredients {
		ing, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		renameField(ing, "packAmount", "amount")
		renameField(ing, "packUnit", "unit")
		renameField(ing, "packPrice", "price")
		renameField(ing, "shelfLife", "shelfLifeDays")
	}
	return doc
}

// migrateV1toV2 lifts plannedRecipes entries that were stored as bare recipe
// id strings into the current object form with one wanted portion.
func migrateV1toV2(doc map[string]any) map[string]any {
	planned, ok := doc["plannedRecipes"].([]any)
	if !ok {
		return doc
	}
	out := make([]any, 0, len(planned))
	for _, raw := range planned {
		switch v := raw.(type) {
		case string:
			out = append(out, map[string]any{"recipeId": v, "portionsWanted": 1})
		case map[string]any:
			out = append(out, v)
		}
	}
	doc["plannedRecipes"] = out
	return doc
}

// renameField moves old to new unless new is already set.
func renameField(m map[string]any, old, new string) {
	v, ok := m[old]
	if !ok {
		return
	}
	if _, taken := m[new]; !taken {
		m[new] = v
	}
	delete(m, old)
}
