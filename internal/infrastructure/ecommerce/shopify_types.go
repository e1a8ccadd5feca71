package ecommerce

import "encoding/json"

// ---------------------------------------------------------------------------
// Shopify GraphQL envelope
// ---------------------------------------------------------------------------

// shopifyGraphQLRequest is the POST body of a GraphQL call
type shopifyGraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// shopifyGraphQLResponse is the generic GraphQL response envelope
type shopifyGraphQLResponse struct {
	Data   json.RawMessage       `json:"data"`
	Errors []ShopifyGraphQLError `json:"errors,omitempty"`
}

// ShopifyGraphQLError is a top-level GraphQL error
type ShopifyGraphQLError struct {
	Message string `json:"message"`
}

// ShopifyUserError is a mutation validation error
type ShopifyUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// ---------------------------------------------------------------------------
// Products query
// ---------------------------------------------------------------------------

const shopifyProductsQuery = `
query GetProducts($first: Int!, $after: String, $query: String, $sortKey: ProductSortKeys, $reverse: Boolean, $namespace: String) {
  products(first: $first, after: $after, query: $query, sortKey: $sortKey, reverse: $reverse) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        title
        handle
        tags
        images(first: 10) {
          edges { node { originalSrc altText } }
        }
        variants(first: 1) {
          edges { node { sku } }
        }
        metafields(first: 20, namespace: $namespace) {
          edges { node { key value } }
        }
      }
    }
  }
}`

// ShopifyProductsData is the data of the products query
type ShopifyProductsData struct {
	Products ShopifyProductConnection `json:"products"`
}

// ShopifyProductConnection is a page of products
type ShopifyProductConnection struct {
	PageInfo ShopifyPageInfo      `json:"pageInfo"`
	Edges    []ShopifyProductEdge `json:"edges"`
}

// ShopifyPageInfo carries the pagination cursor
type ShopifyPageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

// ShopifyProductEdge wraps a product node
type ShopifyProductEdge struct {
	Node ShopifyProduct `json:"node"`
}

// ShopifyProduct is a product node
type ShopifyProduct struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Handle string   `json:"handle"`
	Tags   []string `json:"tags"`
	Images struct {
		Edges []struct {
			Node ShopifyImage `json:"node"`
		} `json:"edges"`
	} `json:"images"`
	Variants struct {
		Edges []struct {
			Node struct {
				SKU string `json:"sku"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"variants"`
	Metafields struct {
		Edges []struct {
			Node ShopifyMetafield `json:"node"`
		} `json:"edges"`
	} `json:"metafields"`
}

// ShopifyImage is a product image node
type ShopifyImage struct {
	OriginalSrc string  `json:"originalSrc"`
	AltText     *string `json:"altText"`
}

// ShopifyMetafield is a metafield node
type ShopifyMetafield struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ---------------------------------------------------------------------------
// productUpdate mutation
// ---------------------------------------------------------------------------

const shopifyProductUpdateMutation = `
mutation productUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product { id }
    userErrors { field message }
  }
}`

// ShopifyProductUpdateData is the data of the productUpdate mutation
type ShopifyProductUpdateData struct {
	ProductUpdate struct {
		Product *struct {
			ID string `json:"id"`
		} `json:"product"`
		UserErrors []ShopifyUserError `json:"userErrors"`
	} `json:"productUpdate"`
}

// shopifyMetafieldInput is one metafield on ProductInput
type shopifyMetafieldInput struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}
