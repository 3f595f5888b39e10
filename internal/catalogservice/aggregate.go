package catalogservice

// frame is one category on the aggregation stack: the next child to visit
// and the running totals over offer descendants seen so far.
type frame struct {
	node  *UnitNode
	next  int
	count int64
	sum   int64
}

// aggregatePrices fills in derived prices for every category in the tree
// rooted at root. Depth-first with an explicit stack, so arbitrarily deep
// catalogs cannot exhaust the call stack.
//
// When a category is fully resolved its (count, sum) pair is merged into the
// parent frame, not its average: the parent's price stays weighted by offer
// count, not averaged over subcategory averages. A category with no offer
// descendants at any depth has no price.
func aggregatePrices(root *UnitNode) {
	stack := []*frame{{node: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next < len(top.node.Children) {
			child := top.node.Children[top.next]
			top.next++
			if child.IsOffer() {
				top.count++
				top.sum += *child.Price
			} else {
				stack = append(stack, &frame{node: child})
			}
			continue
		}

		if top.count > 0 {
			price := top.sum / top.count // floor: both operands non-negative
			top.node.Price = &price
		} else {
			top.node.Price = nil
		}

		stack = stack[:len(stack)-1]
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.count += top.count
			parent.sum += top.sum
		}
	}
}
