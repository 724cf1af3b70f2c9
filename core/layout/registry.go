package layout

import (
	"sort"

	"github.com/pkg/errors"
)

// Catalog categories, in picker order.
const (
	CategoryLayout     = "Layout"
	CategoryNavigation = "Navigation"
	CategoryContent    = "Content"
	CategoryELearning  = "E-learning"
	CategoryForms      = "Forms"
	CategoryCommerce   = "Commerce"
	CategoryPromotion  = "Promotion"
	CategoryMedia      = "Media"
	CategoryContact    = "Contact"
)

var Categories = []string{
	CategoryLayout, CategoryNavigation, CategoryContent, CategoryELearning, CategoryForms,
	CategoryCommerce, CategoryPromotion, CategoryMedia, CategoryContact,
}

// Field kinds, derived from the default payload.
const (
	KindText    = "text"
	KindNumber  = "number"
	KindBoolean = "boolean"
	KindList    = "list"
	KindObject  = "object"
)

type (
	// ComponentType is the single source of truth for a component type:
	// picker metadata and default payload live together, the editor fields are derived from the latter.
	ComponentType struct {
		Type        string `json:"type"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Category    string `json:"category"`
		defaults    Data
	}

	Field struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
)

// Defaults returns a fresh copy of the type's default payload.
func (ct ComponentType) Defaults() Data {
	return Data(copyMap(ct.defaults))
}

// Fields lists the editable fields of the type, sorted by name.
func (ct ComponentType) Fields() []Field {
	fields := make([]Field, 0, len(ct.defaults))
	for name, val := range ct.defaults {
		fields = append(fields, Field{Name: name, Kind: kindOf(val)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

func kindOf(v interface{}) string {
	switch v.(type) {
	case bool:
		return KindBoolean
	case int, int64, float64:
		return KindNumber
	case []interface{}, []string, []map[string]interface{}:
		return KindList
	case map[string]interface{}, Data:
		return KindObject
	default:
		return KindText
	}
}

func item(kv ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func list(items ...map[string]interface{}) []interface{} {
	l := make([]interface{}, len(items))
	for i, it := range items {
		l[i] = it
	}
	return l
}

var registry = []ComponentType{
	// Layout
	{
		Type: "hero", Name: "Bannière principale", Description: "Grande bannière d'accueil avec titre et bouton d'action",
		Category: CategoryLayout,
		defaults: Data{
			"title":           "Bienvenue sur notre plateforme",
			"subtitle":        "Apprenez à votre rythme",
			"description":     "Découvrez nos formations et développez vos compétences.",
			"buttonText":      "Commencer",
			"buttonUrl":       "#",
			"backgroundImage": "",
			"textAlign":       "center",
		},
	},
	{
		Type: "features", Name: "Fonctionnalités", Description: "Grille de points forts avec icônes",
		Category: CategoryLayout,
		defaults: Data{
			"title": "Pourquoi nous choisir ?",
			"items": list(
				item("icon", "book", "title", "Cours variés", "description", "Des contenus pour tous les niveaux."),
				item("icon", "users", "title", "Communauté", "description", "Apprenez avec d'autres étudiants."),
				item("icon", "award", "title", "Certification", "description", "Validez vos acquis."),
			),
			"columns": 3,
		},
	},
	{
		Type: "stats", Name: "Statistiques", Description: "Chiffres clés mis en avant",
		Category: CategoryLayout,
		defaults: Data{
			"title": "Nos résultats",
			"items": list(
				item("value", "1000+", "label", "Étudiants"),
				item("value", "50+", "label", "Cours"),
				item("value", "95%", "label", "Satisfaction"),
			),
		},
	},
	{
		Type: "spacer", Name: "Espacement", Description: "Espace vertical entre deux blocs",
		Category: CategoryLayout,
		defaults: Data{"height": "md", "showDivider": false},
	},

	// Navigation
	{
		Type: "navigation", Name: "Menu de navigation", Description: "Barre de navigation avec logo et liens",
		Category: CategoryNavigation,
		defaults: Data{
			"logo":  "",
			"title": "Mon établissement",
			"links": list(
				item("label", "Accueil", "url", "/"),
				item("label", "Cours", "url", "/courses"),
				item("label", "Contact", "url", "/contact"),
			),
			"sticky": true,
		},
	},
	{
		Type: "footer", Name: "Pied de page", Description: "Liens, mentions et réseaux sociaux",
		Category: CategoryNavigation,
		defaults: Data{
			"copyright": "© Tous droits réservés",
			"links": list(
				item("label", "Mentions légales", "url", "/legal"),
				item("label", "Confidentialité", "url", "/privacy"),
			),
			"socialLinks": list(),
		},
	},
	{
		Type: "breadcrumb", Name: "Fil d'Ariane", Description: "Chemin de navigation vers la page courante",
		Category: CategoryNavigation,
		defaults: Data{"separator": "/", "showHome": true},
	},

	// Content
	{
		Type: "text", Name: "Texte", Description: "Bloc de texte libre",
		Category: CategoryContent,
		defaults: Data{
			"content":   "Votre contenu textuel ici...",
			"textAlign": "left",
			"fontSize":  "base",
		},
	},
	{
		Type: "heading", Name: "Titre", Description: "Titre de section",
		Category: CategoryContent,
		defaults: Data{"text": "Titre de section", "level": 2, "textAlign": "left"},
	},
	{
		Type: "faq", Name: "Questions fréquentes", Description: "Liste de questions et réponses dépliables",
		Category: CategoryContent,
		defaults: Data{
			"title": "Questions fréquentes",
			"items": list(
				item("question", "Comment m'inscrire ?", "answer", "Cliquez sur « Commencer » et suivez les étapes."),
			),
		},
	},

	// E-learning
	{
		Type: "course-card", Name: "Carte de cours", Description: "Présentation d'un cours avec image et progression",
		Category: CategoryELearning,
		defaults: Data{
			"title":       "Titre du cours",
			"description": "Description du cours",
			"image":       "",
			"instructor":  "",
			"duration":    "",
			"level":       "Débutant",
			"buttonText":  "Voir le cours",
			"buttonUrl":   "#",
		},
	},
	{
		Type: "course-list", Name: "Liste de cours", Description: "Grille des cours de l'établissement",
		Category: CategoryELearning,
		defaults: Data{"title": "Nos cours", "limit": 6, "columns": 3, "showFilters": false},
	},
	{
		Type: "instructor-card", Name: "Formateur", Description: "Présentation d'un formateur",
		Category: CategoryELearning,
		defaults: Data{"name": "Nom du formateur", "role": "Formateur", "bio": "", "photo": ""},
	},
	{
		Type: "progress-tracker", Name: "Suivi de progression", Description: "Progression de l'étudiant connecté",
		Category: CategoryELearning,
		defaults: Data{"title": "Ma progression", "showPercentage": true},
	},

	// Forms
	{
		Type: "contact-form", Name: "Formulaire de contact", Description: "Formulaire nom, email et message",
		Category: CategoryForms,
		defaults: Data{
			"title":          "Contactez-nous",
			"submitText":     "Envoyer",
			"successMessage": "Merci, votre message a bien été envoyé.",
			"fields": list(
				item("name", "name", "label", "Nom", "required", true),
				item("name", "email", "label", "Email", "required", true),
				item("name", "message", "label", "Message", "required", true),
			),
		},
	},
	{
		Type: "newsletter", Name: "Newsletter", Description: "Inscription à la lettre d'information",
		Category: CategoryForms,
		defaults: Data{
			"title":       "Restez informé",
			"description": "Recevez nos nouveautés par email.",
			"placeholder": "Votre adresse email",
			"buttonText":  "S'inscrire",
		},
	},

	// Commerce
	{
		Type: "product-card", Name: "Carte produit", Description: "Produit avec prix et bouton d'achat",
		Category: CategoryCommerce,
		defaults: Data{
			"title":       "Nom du produit",
			"description": "Description du produit",
			"image":       "",
			"price":       "0",
			"currency":    "EUR",
			"buttonText":  "Acheter",
			"buttonUrl":   "#",
		},
	},
	{
		Type: "pricing-card", Name: "Carte tarifaire", Description: "Offre avec prix et liste d'avantages",
		Category: CategoryCommerce,
		defaults: Data{
			"title":      "Offre Standard",
			"price":      "29",
			"currency":   "EUR",
			"period":     "mois",
			"features":   []interface{}{"Accès à tous les cours", "Certificat de réussite"},
			"buttonText": "Choisir",
			"buttonUrl":  "#",
			"highlight":  false,
		},
	},

	// Promotion
	{
		Type: "testimonial", Name: "Témoignage", Description: "Citation d'un étudiant",
		Category: CategoryPromotion,
		defaults: Data{
			"quote":  "Une expérience d'apprentissage exceptionnelle !",
			"author": "Nom de l'étudiant",
			"role":   "Étudiant",
			"avatar": "",
			"rating": 5,
		},
	},
	{
		Type: "cta-banner", Name: "Bannière d'appel à l'action", Description: "Bandeau incitatif avec bouton",
		Category: CategoryPromotion,
		defaults: Data{
			"title":           "Prêt à commencer ?",
			"description":     "Inscrivez-vous dès aujourd'hui.",
			"buttonText":      "S'inscrire",
			"buttonUrl":       "#",
			"backgroundColor": "primary",
		},
	},
	{
		Type: "tag-list", Name: "Liste d'étiquettes", Description: "Étiquettes cliquables",
		Category: CategoryPromotion,
		defaults: Data{"title": "Thématiques", "tags": []interface{}{"Mathématiques", "Sciences", "Langues"}},
	},
	{
		Type: "social-proof", Name: "Preuve sociale", Description: "Logos de partenaires et nombre d'inscrits",
		Category: CategoryPromotion,
		defaults: Data{"title": "Ils nous font confiance", "logos": list(), "count": "1000+", "label": "apprenants"},
	},

	// Media
	{
		Type: "image", Name: "Image", Description: "Image avec légende",
		Category: CategoryMedia,
		defaults: Data{"src": "", "alt": "", "caption": "", "width": "full"},
	},
	{
		Type: "carousel", Name: "Carrousel", Description: "Diaporama d'images",
		Category: CategoryMedia,
		defaults: Data{
			"slides": list(
				item("image", "", "title", "Diapositive 1", "description", ""),
			),
			"autoplay": true,
			"interval": 5000,
		},
	},
	{
		Type: "video", Name: "Vidéo", Description: "Vidéo intégrée",
		Category: CategoryMedia,
		defaults: Data{"url": "", "title": "", "autoplay": false},
	},
	{
		Type: "gallery", Name: "Galerie", Description: "Grille d'images",
		Category: CategoryMedia,
		defaults: Data{"images": list(), "columns": 3},
	},

	// Contact
	{
		Type: "contact-info", Name: "Coordonnées", Description: "Adresse, téléphone et email",
		Category: CategoryContact,
		defaults: Data{"address": "", "phone": "", "email": "", "hours": ""},
	},
	{
		Type: "map", Name: "Carte", Description: "Carte de localisation",
		Category: CategoryContact,
		defaults: Data{"address": "", "zoom": 15, "height": "md"},
	},
}

var registryIndex = indexRegistry(registry)

func indexRegistry(types []ComponentType) map[string]int {
	idx := make(map[string]int, len(types))
	for i, ct := range types {
		idx[ct.Type] = i
	}
	return idx
}

// Lookup returns the registered component type.
func Lookup(componentType string) (ComponentType, bool) {
	if i, ok := registryIndex[componentType]; ok {
		return registry[i], true
	}
	return ComponentType{}, false
}

// Default returns the seed payload of a component type.
// Unknown types get an empty payload: they can still be added and filled by hand.
func Default(componentType string) Data {
	if ct, ok := Lookup(componentType); ok {
		return ct.Defaults()
	}
	return Data{}
}

// Types lists the registered component types in catalog order.
func Types() []string {
	types := make([]string, len(registry))
	for i, ct := range registry {
		types[i] = ct.Type
	}
	return types
}

type CatalogCategory struct {
	Name       string          `json:"name"`
	Components []ComponentType `json:"components"`
}

// Catalog groups the registered types by category for the component picker.
func Catalog() []CatalogCategory {
	cats := make([]CatalogCategory, 0, len(Categories))
	for _, name := range Categories {
		cat := CatalogCategory{Name: name, Components: []ComponentType{}}
		for _, ct := range registry {
			if ct.Category == name {
				cat.Components = append(cat.Components, ct)
			}
		}
		cats = append(cats, cat)
	}
	return cats
}

// CheckCatalog checks that every registered type has a known category and a default payload.
func CheckCatalog() error {
	known := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		known[c] = true
	}
	seen := make(map[string]bool, len(registry))
	for _, ct := range registry {
		switch {
		case ct.Type == "":
			return errors.New("component type without tag")
		case seen[ct.Type]:
			return errors.Errorf("component type %q registered twice", ct.Type)
		case !known[ct.Category]:
			return errors.Errorf("component type %q: unknown category %q", ct.Type, ct.Category)
		case len(ct.defaults) == 0:
			return errors.Errorf("component type %q has no default payload", ct.Type)
		}
		seen[ct.Type] = true
	}
	return nil
}
