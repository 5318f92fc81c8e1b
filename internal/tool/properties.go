package tool

import (
	"context"
	"fmt"
	"strings"

	"propdesk/internal/schema"
	"propdesk/internal/store"
)

// ListProperties lists properties with optional status/type and location
// filters. The filter values "sold", "available" and "rented" are
// special-cased; anything else matches against the property type.
func ListProperties(st store.Store) Tool {
	return Tool{
		Name: "listProperties",
		Description: "List the user's properties. Optional filter: \"sold\" for properties sold on installment, " +
			"\"available\" for properties neither sold nor rented, \"rented\" for rented properties, " +
			"or a property type such as \"House\" or \"Plot\". Optional location matched against the address.",
		Input: schema.Schema{Fields: map[string]schema.Field{
			"filter": {
				Kind:        schema.String,
				Description: "Status filter (sold, available, rented) or a property type",
			},
			"location": {
				Kind:        schema.String,
				Description: "Area or city; matched case-insensitively against the address",
			},
		}},
		Output: schema.Schema{Fields: map[string]schema.Field{
			"properties": {Kind: schema.Array, Required: true},
			"count":      {Kind: schema.Integer, Required: true},
			"summary":    {Kind: schema.String, Required: true, MinLength: 1},
		}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			all, err := st.ListProperties(ctx)
			if err != nil {
				return nil, fmt.Errorf("list properties: %w", err)
			}

			filter, _ := args["filter"].(string)
			location, _ := args["location"].(string)
			matched := filterProperties(all, filter, location)

			entries := make([]map[string]any, 0, len(matched))
			for _, p := range matched {
				entries = append(entries, map[string]any{
					"id":           p.ID,
					"name":         p.Name,
					"address":      p.Address,
					"propertyType": typeOrNA(p.PropertyType),
					"status":       propertyStatus(p),
				})
			}

			return map[string]any{
				"properties": entries,
				"count":      len(matched),
				"summary":    listSummary(matched),
			}, nil
		},
	}
}

// AddProperty creates a new property with a required name and address.
func AddProperty(st store.Store) Tool {
	return Tool{
		Name:        "addProperty",
		Description: "Add a new property to the portfolio. Requires a name and an address; the property type is optional.",
		Input: schema.Schema{Fields: map[string]schema.Field{
			"name":         {Kind: schema.String, Required: true, MinLength: 1, Description: "Name of the property"},
			"address":      {Kind: schema.String, Required: true, MinLength: 1, Description: "Street address or plot location"},
			"propertyType": {Kind: schema.String, Description: "Type, e.g. House, Plot, Apartment, Shop"},
		}},
		Output: schema.Schema{Fields: map[string]schema.Field{
			"propertyId": {Kind: schema.String, Required: true},
			"message":    {Kind: schema.String, Required: true, MinLength: 1},
		}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			name, _ := args["name"].(string)
			address, _ := args["address"].(string)
			propertyType, _ := args["propertyType"].(string)

			created, err := st.CreateProperty(ctx, store.Property{
				Name:         name,
				Address:      address,
				PropertyType: propertyType,
				Plots:        []string{},
			})
			if err != nil {
				return nil, fmt.Errorf("create property: %w", err)
			}

			typeLabel := "Type N/A"
			if created.PropertyType != "" {
				typeLabel = created.PropertyType
			}
			return map[string]any{
				"propertyId": created.ID,
				"message":    fmt.Sprintf("Added property %q (%s) with id %s.", created.Name, typeLabel, created.ID),
			}, nil
		},
	}
}

// GetPropertyDetails looks up a single property by id or by exact name.
func GetPropertyDetails(st store.Store) Tool {
	return Tool{
		Name:        "getPropertyDetails",
		Description: "Get the full record of one property, looked up either by its id or by its exact name.",
		Input: schema.Schema{Fields: map[string]schema.Field{
			"identifier": {Kind: schema.String, Required: true, MinLength: 1, Description: "The property id or name"},
			"identifierType": {
				Kind:        schema.String,
				Required:    true,
				Enum:        []string{"id", "name"},
				Description: "Whether the identifier is an id or a name",
			},
		}},
		Output: schema.Schema{Fields: map[string]schema.Field{
			"found":    {Kind: schema.Boolean, Required: true},
			"property": {Kind: schema.Object},
			"message":  {Kind: schema.String, Required: true, MinLength: 1},
		}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			identifier, _ := args["identifier"].(string)
			identifierType, _ := args["identifierType"].(string)

			var p *store.Property
			var err error
			if identifierType == "id" {
				p, err = st.GetPropertyByID(ctx, identifier)
			} else {
				p, err = st.GetPropertyByName(ctx, identifier)
			}
			if err != nil {
				return nil, fmt.Errorf("get property: %w", err)
			}

			if p == nil {
				return map[string]any{
					"found":   false,
					"message": fmt.Sprintf("No property found with %s %q.", identifierType, identifier),
				}, nil
			}
			return map[string]any{
				"found":    true,
				"property": propertyRecord(p),
				"message":  fmt.Sprintf("Here are the details for %q.", p.Name),
			}, nil
		},
	}
}

// UpdatePropertyDetails applies a partial update to a property. Calling it
// with only a propertyId is a no-op that reports nothing was changed.
func UpdatePropertyDetails(st store.Store) Tool {
	return Tool{
		Name: "updatePropertyDetails",
		Description: "Update fields of an existing property by id. Only the supplied fields change; " +
			"supplying no fields changes nothing.",
		Input: schema.Schema{Fields: map[string]schema.Field{
			"propertyId":          {Kind: schema.String, Required: true, MinLength: 1, Description: "Id of the property to update"},
			"name":                {Kind: schema.String, Description: "New name"},
			"address":             {Kind: schema.String, Description: "New address"},
			"propertyType":        {Kind: schema.String, Description: "New type"},
			"isSoldOnInstallment": {Kind: schema.Boolean, Description: "Whether the property is sold on installment"},
			"isRented":            {Kind: schema.Boolean, Description: "Whether the property is rented out"},
		}},
		Output: schema.Schema{Fields: map[string]schema.Field{
			"updated":  {Kind: schema.Boolean, Required: true},
			"property": {Kind: schema.Object},
			"message":  {Kind: schema.String, Required: true, MinLength: 1},
		}},
		Handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
			id, _ := args["propertyId"].(string)
			patch := patchFromArgs(args)

			if patch.Empty() {
				return map[string]any{
					"updated": false,
					"message": fmt.Sprintf("No fields to update were provided for property %s; nothing was changed.", id),
				}, nil
			}

			updated, err := st.UpdateProperty(ctx, id, patch)
			if err != nil {
				return nil, fmt.Errorf("update property: %w", err)
			}
			if updated == nil {
				return map[string]any{
					"updated": false,
					"message": fmt.Sprintf("No property found with id %q.", id),
				}, nil
			}

			return map[string]any{
				"updated":  true,
				"property": propertyRecord(updated),
				"message": fmt.Sprintf("Updated property: name %q, address %q, type %s.",
					updated.Name, updated.Address, typeOrNA(updated.PropertyType)),
			}, nil
		},
	}
}

func patchFromArgs(args map[string]any) store.PropertyPatch {
	var patch store.PropertyPatch
	if v, ok := args["name"].(string); ok {
		patch.Name = &v
	}
	if v, ok := args["address"].(string); ok {
		patch.Address = &v
	}
	if v, ok := args["propertyType"].(string); ok {
		patch.PropertyType = &v
	}
	if v, ok := args["isSoldOnInstallment"].(bool); ok {
		patch.IsSoldOnInstallment = &v
	}
	if v, ok := args["isRented"].(bool); ok {
		patch.IsRented = &v
	}
	return patch
}

// filterProperties applies the location filter first, then the status/type
// filter. Both matches are case-insensitive substring matches except for the
// special status values.
func filterProperties(all []store.Property, filter, location string) []store.Property {
	loc := strings.ToLower(location)
	f := strings.ToLower(strings.TrimSpace(filter))

	var out []store.Property
	for _, p := range all {
		if loc != "" && !strings.Contains(strings.ToLower(p.Address), loc) {
			continue
		}
		switch f {
		case "":
		case "sold":
			if !p.IsSoldOnInstallment {
				continue
			}
		case "available":
			if p.IsSoldOnInstallment || p.IsRented {
				continue
			}
		case "rented":
			if !p.IsRented {
				continue
			}
		default:
			if !strings.Contains(strings.ToLower(p.PropertyType), f) {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

func listSummary(matched []store.Property) string {
	if len(matched) == 0 {
		return "No properties matched your query."
	}

	pairs := make([]string, len(matched))
	for i, p := range matched {
		pairs[i] = fmt.Sprintf("%s (%s)", p.Name, typeOrNA(p.PropertyType))
	}

	noun := "properties"
	if len(matched) == 1 {
		noun = "property"
	}
	return fmt.Sprintf("Found %d %s: %s.", len(matched), noun, strings.Join(pairs, ", "))
}

func propertyStatus(p store.Property) string {
	switch {
	case p.IsSoldOnInstallment:
		return "sold on installment"
	case p.IsRented:
		return "rented"
	default:
		return "available"
	}
}

func propertyRecord(p *store.Property) map[string]any {
	return map[string]any{
		"id":                  p.ID,
		"name":                p.Name,
		"address":             p.Address,
		"propertyType":        typeOrNA(p.PropertyType),
		"isSoldOnInstallment": p.IsSoldOnInstallment,
		"isRented":            p.IsRented,
		"status":              propertyStatus(*p),
	}
}

func typeOrNA(t string) string {
	if t == "" {
		return "N/A"
	}
	return t
}
