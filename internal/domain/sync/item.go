package sync

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Normalized items model the fields the server knows about; anything else a
// client sends is preserved verbatim in the Extra map and merged back on
// marshal, so schema additions on the client side survive a round trip.

type InventoryItem struct {
	ID              string          `json:"id"`
	Name            *string         `json:"name,omitempty"`
	Barcode         *string         `json:"barcode,omitempty"`
	Quantity        json.RawMessage `json:"quantity,omitempty"`
	Unit            *string         `json:"unit,omitempty"`
	StorageLocation *string         `json:"storageLocation,omitempty"`
	PurchaseDate    *string         `json:"purchaseDate,omitempty"`
	ExpirationDate  *string         `json:"expirationDate,omitempty"`
	Category        *string         `json:"category,omitempty"`
	UsdaCategory    *string         `json:"usdaCategory,omitempty"`
	Nutrition       json.RawMessage `json:"nutrition,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	ImageURI        *string         `json:"imageUri,omitempty"`
	FdcID           json.RawMessage `json:"fdcId,omitempty"`
	DeletedAt       *string         `json:"deletedAt,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type Recipe struct {
	ID            string          `json:"id"`
	Title         *string         `json:"title,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Ingredients   json.RawMessage `json:"ingredients,omitempty"`
	Instructions  json.RawMessage `json:"instructions,omitempty"`
	PrepTime      json.RawMessage `json:"prepTime,omitempty"`
	CookTime      json.RawMessage `json:"cookTime,omitempty"`
	Servings      json.RawMessage `json:"servings,omitempty"`
	ImageURI      *string         `json:"imageUri,omitempty"`
	CloudImageURI *string         `json:"cloudImageUri,omitempty"`
	Nutrition     json.RawMessage `json:"nutrition,omitempty"`
	IsFavorite    *bool           `json:"isFavorite,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type MealPlan struct {
	ID    string          `json:"id"`
	Date  *string         `json:"date,omitempty"`
	Meals json.RawMessage `json:"meals,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type ShoppingItem struct {
	ID        string          `json:"id"`
	Name      *string         `json:"name,omitempty"`
	Quantity  json.RawMessage `json:"quantity,omitempty"`
	Unit      *string         `json:"unit,omitempty"`
	IsChecked *bool           `json:"isChecked,omitempty"`
	Category  *string         `json:"category,omitempty"`
	RecipeID  *string         `json:"recipeId,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type CookwareItem struct {
	ID           string          `json:"id"`
	Name         *string         `json:"name,omitempty"`
	Category     *string         `json:"category,omitempty"`
	Alternatives json.RawMessage `json:"alternatives,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

func (it *InventoryItem) UnmarshalJSON(data []byte) error {
	type alias InventoryItem
	return unmarshalWithExtra(data, (*alias)(it), &it.Extra)
}

func (it InventoryItem) MarshalJSON() ([]byte, error) {
	type alias InventoryItem
	return marshalWithExtra(alias(it), it.Extra)
}

func (r *Recipe) UnmarshalJSON(data []byte) error {
	type alias Recipe
	return unmarshalWithExtra(data, (*alias)(r), &r.Extra)
}

func (r Recipe) MarshalJSON() ([]byte, error) {
	type alias Recipe
	return marshalWithExtra(alias(r), r.Extra)
}

func (m *MealPlan) UnmarshalJSON(data []byte) error {
	type alias MealPlan
	return unmarshalWithExtra(data, (*alias)(m), &m.Extra)
}

func (m MealPlan) MarshalJSON() ([]byte, error) {
	type alias MealPlan
	return marshalWithExtra(alias(m), m.Extra)
}

func (s *ShoppingItem) UnmarshalJSON(data []byte) error {
	type alias ShoppingItem
	return unmarshalWithExtra(data, (*alias)(s), &s.Extra)
}

func (s ShoppingItem) MarshalJSON() ([]byte, error) {
	type alias ShoppingItem
	return marshalWithExtra(alias(s), s.Extra)
}

func (c *CookwareItem) UnmarshalJSON(data []byte) error {
	type alias CookwareItem
	return unmarshalWithExtra(data, (*alias)(c), &c.Extra)
}

func (c CookwareItem) MarshalJSON() ([]byte, error) {
	type alias CookwareItem
	return marshalWithExtra(alias(c), c.Extra)
}

// unmarshalWithExtra decodes data into the known fields of v and captures the
// remaining keys into extra.
func unmarshalWithExtra(data []byte, v any, extra *map[string]json.RawMessage) error {
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key := range knownJSONKeys(v) {
		delete(all, key)
	}
	if len(all) > 0 {
		*extra = all
	}
	return nil
}

// marshalWithExtra serializes the known fields of v and re-merges extra.
// Known fields win over stale duplicates in extra.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	known, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return known, nil
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(known, &all); err != nil {
		return nil, err
	}
	for key, value := range extra {
		if _, ok := all[key]; !ok {
			all[key] = value
		}
	}
	return json.Marshal(all)
}

// knownJSONKeys lists the JSON keys declared on v's struct fields.
func knownJSONKeys(v any) map[string]struct{} {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		keys[tag] = struct{}{}
	}
	return keys
}

// StoredItem is a normalized item ready for the section store: its client
// assigned id plus the full serialized document.
type StoredItem struct {
	ID  string
	Doc json.RawMessage
}

// decodeSection parses a normalized section payload into stored items,
// validating shape through the section's typed model. Items without an id are
// dropped: without a stable client id they cannot be reconciled across
// devices. The second return value is the number of dropped items.
func decodeSection(section string, raw json.RawMessage) ([]StoredItem, int, error) {
	var items []StoredItem
	var dropped int

	add := func(id string, v any) error {
		if id == "" {
			dropped++
			return nil
		}
		doc, err := json.Marshal(v)
		if err != nil {
			return err
		}
		items = append(items, StoredItem{ID: id, Doc: doc})
		return nil
	}

	switch section {
	case SectionInventory:
		var parsed []InventoryItem
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", section, err)
		}
		for _, it := range parsed {
			if err := add(it.ID, it); err != nil {
				return nil, 0, err
			}
		}
	case SectionRecipes:
		var parsed []Recipe
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", section, err)
		}
		for _, it := range parsed {
			if err := add(it.ID, it); err != nil {
				return nil, 0, err
			}
		}
	case SectionMealPlans:
		var parsed []MealPlan
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", section, err)
		}
		for _, it := range parsed {
			if err := add(it.ID, it); err != nil {
				return nil, 0, err
			}
		}
	case SectionShoppingList:
		var parsed []ShoppingItem
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", section, err)
		}
		for _, it := range parsed {
			if err := add(it.ID, it); err != nil {
				return nil, 0, err
			}
		}
	case SectionCookware:
		var parsed []CookwareItem
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", section, err)
		}
		for _, it := range parsed {
			if err := add(it.ID, it); err != nil {
				return nil, 0, err
			}
		}
	default:
		return nil, 0, fmt.Errorf("unknown normalized section %q", section)
	}

	return items, dropped, nil
}
