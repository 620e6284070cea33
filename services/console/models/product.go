package models

// Product is a catalog entry. Price is stored as a plain number and converted
// to a decimal wherever money is computed.
type Product struct {
	ID       string  `json:"id,omitempty" bson:"_id,omitempty" dynamodbav:"id,omitempty"`
	Name     string  `json:"name" bson:"name" dynamodbav:"name"`
	Category string  `json:"category" bson:"category" dynamodbav:"category"`
	Price    float64 `json:"price" bson:"price" dynamodbav:"price"`
	Qty      int     `json:"qty" bson:"qty" dynamodbav:"qty"`
	ImageURL string  `json:"imageURL,omitempty" bson:"imageURL,omitempty" dynamodbav:"imageURL,omitempty"`
}
