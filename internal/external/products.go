package external

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mtlprog/cardtrade/internal/domain"
)

type productsFile struct {
	Products []Product `yaml:"products"`
}

// LoadProducts reads the catalog of products to mirror from a YAML file of the form
//
//	products:
//	  - game: pokemon
//	    productId: base1-4
//	    finish: {isFirstEdition: true, isHolo: true}
func LoadProducts(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading products file: %w", err)
	}
	return ParseProducts(data)
}

// ParseProducts decodes and validates a products catalog.
func ParseProducts(data []byte) ([]Product, error) {
	var file productsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing products file: %w", err)
	}

	for i, p := range file.Products {
		p.Game = domain.NormalizeGame(string(p.Game))
		if p.Game == "" || p.ProductID == "" {
			return nil, fmt.Errorf("product %d: game and productId are required", i)
		}
		if err := p.Finish.Validate(); err != nil {
			return nil, fmt.Errorf("product %d (%s): %w", i, p.ProductID, err)
		}
		file.Products[i] = p
	}
	return file.Products, nil
}
